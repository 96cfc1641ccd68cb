package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Exporter 把排序好的结果集交给下游（文件、队列……）。
type Exporter interface {
	Export(ctx context.Context, records []domain.ResultRecord) error
}

// csvHeader 与 ResultRecord 的 JSON 字段同名同序；animation 不进入 CSV。
var csvHeader = []string{
	"id", "work_id", "url", "title", "tags", "tags_translated",
	"user_id", "user", "width", "height", "ext", "bookmarks", "date", "type", "rank",
}

// TagSeparator 是 CSV 中多值标签列的分隔符（站点标签本身不含该字符）。
const TagSeparator = "|"

// ValidFormat 判断是否为支持的导出格式。
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatJSONL, FormatCSV:
		return true
	default:
		return false
	}
}

// Encode 按 format 把结果集写入 w，保持输入顺序。
//
// - json：一个数组（空结果输出 []）
// - jsonl：每行一个对象
// - csv：首行表头
func Encode(w io.Writer, records []domain.ResultRecord, format string) error {
	switch format {
	case FormatJSON:
		out := make([]domain.ResultRecord, 0, len(records))
		for _, r := range records {
			out = append(out, normalize(r))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for i := range records {
			if err := enc.Encode(normalize(records[i])); err != nil {
				return err
			}
		}
		return nil
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(csvRow(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("不支持的导出格式：%q", format)
	}
}

// normalize 让 nil 标签切片输出为 []，下游不必区分 null。
func normalize(r domain.ResultRecord) domain.ResultRecord {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.TagsTranslated == nil {
		r.TagsTranslated = []string{}
	}
	return r
}

func csvRow(r domain.ResultRecord) []string {
	return []string{
		r.ID,
		string(r.WorkID),
		r.URL,
		r.Title,
		strings.Join(r.Tags, TagSeparator),
		strings.Join(r.TagsTranslated, TagSeparator),
		r.UserID,
		r.User,
		strconv.Itoa(r.Width),
		strconv.Itoa(r.Height),
		r.Ext,
		strconv.Itoa(r.Bookmarks),
		r.Date,
		r.Type.String(),
		r.Rank,
	}
}
