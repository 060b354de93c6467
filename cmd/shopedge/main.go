/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package main

import (
	"fmt"
	"os"

	"github.com/blackeyesartisan/shopkit/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "shopedge:", err)
		os.Exit(1)
	}
}
