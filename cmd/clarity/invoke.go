/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/

package clarity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	clarityerrors "github.com/clarity-app/clarity-api/internal/errors"
	"github.com/spf13/cobra"
)

var eventFile string
var invokeInContainer bool

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "invoke the function once",
	Long: `Invoke the function once with an event read from --event (a file, or - for
stdin) and print the result. Without --event the function receives null.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readEvent(eventFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		inv, err := newInvoker(invokeInContainer)
		if err != nil {
			return err
		}

		result, err := inv.Invoke(cmd.Context(), payload)
		if err != nil {
			return fmt.Errorf("invocation failed: %w", err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(result))
		return err
	},
}

// readEvent loads the event payload from source. An empty source means no
// event, which is sent as JSON null.
func readEvent(source string, stdin io.Reader) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch source {
	case "":
		return []byte("null"), nil
	case "-":
		source = "stdin"
		payload, err = io.ReadAll(stdin)
	default:
		payload, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event from %s: %w", source, err)
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(payload) {
		return nil, clarityerrors.NewInvalidEventError(source, "payload is not valid JSON")
	}
	return payload, nil
}

func init() {
	invokeCmd.Flags().StringVarP(&eventFile, "event", "e", "", "event file to send, or - for stdin")
	invokeCmd.Flags().BoolVar(&invokeInContainer, "container", false, "invoke the function inside the Lambda base image")
	rootCmd.AddCommand(invokeCmd)
}
