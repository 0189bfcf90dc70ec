package commands

import "fmt"

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

func printDemoWarning(durable bool) {
	if !durable {
		fmt.Printf("%sDemo mode: nothing is saved to the spreadsheet%s\n", colorYellow, colorReset)
	}
}
