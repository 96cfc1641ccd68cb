package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/infra/fsx"
)

// maxTableRows 是终端表格最多展示的记录数；完整结果请用 --records 导出。
const maxTableRows = 50

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// emitReport 输出最终报告。
//
// stdout 非 TTY：stdout 必须且仅输出一个 CrawlReport JSON（摘要走 stderr）。
// stdout 是 TTY：输出摘要 + 记录表格，失败明细写 stderr。
func emitReport(std stdio, rep domain.CrawlReport) {
	if !isTTY(std.out) {
		enc := json.NewEncoder(std.out)
		_ = enc.Encode(rep)
		fmt.Fprintln(std.err, summaryLine(rep))
		return
	}

	fmt.Fprintln(std.out, summaryLine(rep))
	if rep.Message != "" {
		fmt.Fprintln(std.out, rep.Message)
	}
	if len(rep.Records) > 0 {
		fmt.Fprintln(std.out, renderRecords(rep.Records, maxTableRows))
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(std.err, "%s status=%d: %s\n", f.ID, f.StatusCode, f.Message)
	}
}

func summaryLine(rep domain.CrawlReport) string {
	s := rep.Summary
	return fmt.Sprintf("完成：outcome=%s works=%d records=%d filtered=%d dropped=%d retries=%d",
		rep.Outcome, s.Works, s.Records, s.Filtered, s.Dropped, s.Retries,
	)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderRecords 把前 limit 条记录渲染为表格；超出部分用一行省略提示。
func renderRecords(records []domain.ResultRecord, limit int) string {
	headers := []string{"ID", "TYPE", "RANK", "BOOKMARKS", "SIZE", "USER", "TITLE"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}

	shown := records
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	rows := make([][]string, 0, len(shown)+1)
	for _, r := range shown {
		rows = append(rows, []string{
			r.ID,
			r.Type.String(),
			r.Rank,
			strconv.Itoa(r.Bookmarks),
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			truncate(r.User, 24),
			truncate(r.Title, 40),
		})
	}
	if rest := len(records) - len(shown); rest > 0 {
		rows = append(rows, []string{fmt.Sprintf("… 其余 %d 条", rest)})
	}
	return renderTable(headers, rows, aligns)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func writeReportFile(path string, rep domain.CrawlReport) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(path, b)
}
