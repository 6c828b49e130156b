package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/klya-ai/klya-api/internal/models"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keyTable(w io.Writer, keys []models.APIKey) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "No API keys found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHINT\tACTIVE\tPERMISSIONS\tUSAGE\tLAST USED\tEXPIRES")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s…\t%t\t%s\t%d\t%s\t%s\n",
			k.ID, k.Name, k.Hint, k.IsActive,
			strings.Join(k.Permissions, ","),
			k.UsageCount,
			formatTime(k.LastUsedAt),
			formatTime(k.ExpiresAt),
		)
	}
	tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
