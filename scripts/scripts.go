// Package scripts embeds the built-in Risor report scripts run by
// `sqfls script`.
package scripts

import "embed"

// FS holds reports/*.risor.
//
//go:embed reports/*.risor
var FS embed.FS

// Report returns the embedded path of the named built-in report.
func Report(name string) string {
	return "reports/" + name + ".risor"
}
