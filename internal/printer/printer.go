package printer

import "github.com/slok/revdeprun/internal/model"

// Printer knows how to print run history and check information in different formats.
type Printer interface {
	PrintRunList(runs []model.RunOverview) error
	PrintRun(run model.RunOverview, phases []model.PhaseRecord) error
	PrintChecks(results []model.CheckResult) error
	PrintMessage(msg string) error
}
