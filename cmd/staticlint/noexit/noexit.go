// Package noexit содержит анализатор, запрещающий прямой вызов os.Exit в функции main.
// Команды завершаются через возврат ошибки, logger.Fatal или cobra.CheckErr,
// чтобы отложенные вызовы main успели выполниться там, где это возможно.
package noexit

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// NoExitAnalyzer сообщает о вызовах os.Exit в теле функции main пакета main
var NoExitAnalyzer = &analysis.Analyzer{
	Name: "noexit",
	Doc:  "запрещает прямой вызов os.Exit в функции main пакета main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Сгенерированный go test main лежит в кеше сборки
		if strings.Contains(pass.Fset.Position(file.Pos()).Filename, "go-build") {
			continue
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || fn.Name.Name != "main" || fn.Body == nil {
				continue
			}
			ast.Inspect(fn.Body, func(n ast.Node) bool {
				if call, ok := n.(*ast.CallExpr); ok && isOSExit(pass, call) {
					pass.Reportf(call.Pos(), "прямой вызов os.Exit в функции main запрещен")
				}
				return true
			})
		}
	}
	return nil, nil
}

// isOSExit проверяет, что call вызывает os.Exit
func isOSExit(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Exit" {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	pkg, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	return ok && pkg.Imported().Path() == "os"
}
