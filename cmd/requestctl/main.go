// Command requestctl drives the service request lifecycle from a terminal,
// either against the REST backend or against a local data file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"marketplace-server/services"
	"marketplace-server/types"
)

func main() {
	// .env is optional for the CLI as well
	_ = godotenv.Load()

	app := newApp(os.Stdout)
	if err := app.run(context.Background(), os.Args[1:]); err != nil {
		printError(os.Stderr, err, app.opts.locale)
		os.Exit(1)
	}
}

// printError shows typed failures in the user's language. Anything else is a
// usage or setup problem and is printed as is.
func printError(w io.Writer, err error, locale string) {
	var stale *services.StaleStateError
	if errors.As(err, &stale) && stale.Latest != nil {
		fmt.Fprintln(w, services.ErrorMessage(err, locale))
		fmt.Fprintf(w, "Current status: %s\n", services.StatusLabel(stale.Latest.Status, locale))
		return
	}

	var typed *types.Error
	if !errors.As(err, &typed) {
		fmt.Fprintln(w, "Error:", err)
		return
	}
	fmt.Fprintln(w, services.ErrorMessage(err, locale))
	if typed.Kind == types.KindValidation && typed.Message != "" {
		fmt.Fprintf(w, "  %s\n", typed.Message)
	}
}
