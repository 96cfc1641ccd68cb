package export

import (
	"context"
	"io"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/infra/fsx"
)

// FileSink 把结果集原子写入本地文件；写入失败时旧文件保持不变。
type FileSink struct {
	Path   string
	Format string
}

var _ Exporter = FileSink{}

func (s FileSink) Export(ctx context.Context, records []domain.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fsx.WriteAtomic(s.Path, func(w io.Writer) error {
		return Encode(w, records, s.Format)
	})
}
