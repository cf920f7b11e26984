package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pmflow/app/objects"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <request-id>",
	Short: "Print a request and its tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		request, tokens, err := rt.engine.GetRequest(adminContext(), args[0])
		if err != nil {
			return err
		}
		printRequest(cmd.OutOrStdout(), request, tokens)
		return nil
	},
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func printRequest(w io.Writer, request *objects.ProcessRequest, tokens []*objects.ProcessRequestToken) {
	fmt.Fprintln(w, "REQUEST:")
	fmt.Fprintf(w, "  %-20v %v\n", "id:", request.ID)
	fmt.Fprintf(w, "  %-20v %v\n", "process:", request.ProcessID)
	fmt.Fprintf(w, "  %-20v %v\n", "version:", request.ProcessVersionID)
	fmt.Fprintf(w, "  %-20v %v\n", "status:", request.Status)
	fmt.Fprintf(w, "  %-20v %v\n", "startTime:", request.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  %-20v %v\n", "completedTime:", formatTime(request.CompletedAt))
	if request.ErrorMessage != "" {
		fmt.Fprintf(w, "  %-20v %v\n", "error:", request.ErrorMessage)
	}
	data, _ := json.Marshal(request.Data)
	fmt.Fprintf(w, "  %-20v %s\n", "data:", data)

	fmt.Fprintln(w, "TOKENS:")
	for _, tk := range tokens {
		user := "-"
		if tk.UserID != nil {
			user = fmt.Sprint(*tk.UserID)
		}
		fmt.Fprintf(w, "+ %-3d ID: %-36v|ELEMENT: %-20v|TYPE: %-22v|STATUS: %-10v|USER: %-6v|DUE: %v\n",
			tk.Sequence, tk.ID, tk.ElementID, tk.ElementType, tk.Status, user, formatTime(tk.DueAt))
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
