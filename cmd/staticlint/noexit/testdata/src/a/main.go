package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("start")
	os.Exit(1) // want `прямой вызов os.Exit в функции main запрещен`
}

func fail() {
	os.Exit(2)
}
