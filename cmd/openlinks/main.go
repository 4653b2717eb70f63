// Command openlinks управляет короткими ссылками из командной строки: создаёт,
// меняет, архивирует записи и выполняет массовые изменения с подтверждением.
//
// Без флага --server команды работают с рабочим деревом --data-dir напрямую.
// С флагом --server команды выполняются на запущенном openlinks-server по gRPC.
package main

import "github.com/spf13/cobra"

func main() {
	cobra.CheckErr(newRootCmd(nil).Execute())
}
