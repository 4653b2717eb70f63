// Package noclock содержит анализатор, запрещающий чтение системных часов
// в пакетах, которые получают текущий момент параметром.
package noclock

import (
	"go/ast"
	"go/types"
	"path"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Packages - последние элементы путей пакетов, в которых запрещены time.Now и time.Since
var Packages = map[string]bool{
	"extract":  true,
	"resolver": true,
	"validate": true,
	"models":   true,
}

// forbidden - функции пакета time, читающие системные часы
var forbidden = map[string]bool{
	"Now":   true,
	"Since": true,
	"Until": true,
}

// NoClockAnalyzer проверяет, что пакеты из Packages не обращаются к системным часам
var NoClockAnalyzer = &analysis.Analyzer{
	Name: "noclock",
	Doc:  "запрещает time.Now, time.Since и time.Until в пакетах, принимающих момент времени параметром",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if !Packages[path.Base(pass.Pkg.Path())] {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Тесты могут пользоваться часами
		if strings.HasSuffix(pass.Fset.Position(file.Pos()).Filename, "_test.go") {
			continue
		}
		ast.Inspect(file, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok || !forbidden[sel.Sel.Name] {
				return true
			}
			ident, ok := sel.X.(*ast.Ident)
			if !ok {
				return true
			}
			if pkg, ok := pass.TypesInfo.Uses[ident].(*types.PkgName); ok && pkg.Imported().Path() == "time" {
				pass.Reportf(sel.Pos(), "time.%s запрещён в пакете %s: передайте момент времени параметром", sel.Sel.Name, pass.Pkg.Name())
			}
			return true
		})
	}
	return nil, nil
}
