// Command synth fits synthetic-data plugins on CSV tables, stores the fitted
// models and generates new rows from them.
package main

import (
	"os"
)

func main() {
	a := newApp()
	err := newRootCmd(a).Execute()
	if err != nil {
		a.report(err)
	}
	if cerr := a.close(); cerr != nil {
		a.report(cerr)
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}
