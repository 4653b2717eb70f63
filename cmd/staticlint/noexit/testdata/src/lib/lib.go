package lib

import "os"

func main() {
	os.Exit(1)
}
