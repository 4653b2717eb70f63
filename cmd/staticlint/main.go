// Command staticlint - multichecker проекта openlinks.
//
// Набор анализаторов:
//   - проходы golang.org/x/tools: nilness, shadow, unreachable, printf, assign,
//     atomic, bools, buildtag, copylocks;
//   - все SA анализаторы staticcheck;
//   - отдельные проверки стиля и упрощений staticcheck из extraChecks;
//   - errcheck;
//   - noexit: os.Exit в main пакета main;
//   - noclock: чтение текущего времени в пакетах, получающих момент параметром.
//
// Запуск:
//
//	go run ./cmd/staticlint ./...
package main

import (
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/buildtag"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/kisielk/errcheck/errcheck"

	"github.com/jamiechicago312/openlinks/cmd/staticlint/noclock"
	"github.com/jamiechicago312/openlinks/cmd/staticlint/noexit"
)

// extraChecks - проверки staticcheck вне класса SA
var extraChecks = map[string]bool{
	"ST1000": true, // комментарий пакета
	"ST1005": true, // строки ошибок без заглавной буквы и точки
	"ST1019": true, // повторный импорт пакета
	"S1000":  true, // select с одним case
	"S1002":  true, // сравнение bool с константой
}

func analyzers() []*analysis.Analyzer {
	list := []*analysis.Analyzer{
		nilness.Analyzer,
		shadow.Analyzer,
		unreachable.Analyzer,
		printf.Analyzer,
		assign.Analyzer,
		atomic.Analyzer,
		bools.Analyzer,
		buildtag.Analyzer,
		copylock.Analyzer,
	}

	for _, a := range staticcheck.Analyzers {
		list = append(list, a.Analyzer)
	}
	list = append(list, pick(stylecheck.Analyzers)...)
	list = append(list, pick(simple.Analyzers)...)

	return append(list,
		errcheck.Analyzer,
		noexit.NoExitAnalyzer,
		noclock.NoClockAnalyzer,
	)
}

// pick оставляет анализаторы из extraChecks
func pick(all []*lint.Analyzer) []*analysis.Analyzer {
	var out []*analysis.Analyzer
	for _, a := range all {
		if extraChecks[a.Analyzer.Name] {
			out = append(out, a.Analyzer)
		}
	}
	return out
}

func main() {
	multichecker.Main(analyzers()...)
}
