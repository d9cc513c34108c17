package main

import (
	"io"
	"time"

	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func writeMessages(out io.Writer, messages []*models.ChatMessage) {
	table := newTable(out, []string{"ID", "Created", "Sender", "Content"})
	for _, m := range messages {
		table.Append([]string{m.ID, m.CreatedAt.Format(time.RFC3339), m.Sender, m.Content})
	}
	table.Render()
}

func writeBlockRecords(out io.Writer, records []*models.BlockRecord) {
	table := newTable(out, []string{"ID", "Blocked", "Email", "Device", "Agent", "Reason"})
	for _, r := range records {
		table.Append([]string{
			r.ID,
			r.BlockedAt.Format(time.RFC3339),
			lo.FromPtrOr(r.Email, "-"),
			lo.FromPtrOr(r.DeviceFingerprint, "-"),
			lo.FromPtrOr(r.AgentString, "-"),
			r.Reason,
		})
	}
	table.Render()
}
