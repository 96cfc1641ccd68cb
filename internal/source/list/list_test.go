package list

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		in   string
		want domain.WorkID
	}{
		{in: "112233", want: "112233"},
		{in: "  4455  ", want: "4455"},
		{in: "https://www.pixiv.net/artworks/987654", want: "987654"},
		{in: "https://www.pixiv.net/en/artworks/987654?x=1", want: "987654"},
		{in: "https://www.pixiv.net/member_illust.php?mode=medium&illust_id=42", want: "42"},
		// 同一 id 出现两次不算 ambiguous。
		{in: "https://www.pixiv.net/artworks/7 https://www.pixiv.net/artworks/7", want: "7"},
	}
	for _, tc := range cases {
		got, err := Extract(tc.in)
		if err != nil {
			t.Fatalf("Extract(%q) 不期望错误：%v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Extract(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestExtract_Unmatched(t *testing.T) {
	_, err := Extract("hello world")
	var ue *UnmatchedError
	if !errors.As(err, &ue) || ue.Kind != "no_match" {
		t.Fatalf("期望 no_match，实际 %v", err)
	}

	_, err = Extract("/artworks/2 /artworks/10")
	if !errors.As(err, &ue) || ue.Kind != "ambiguous" {
		t.Fatalf("期望 ambiguous，实际 %v", err)
	}
	if len(ue.Candidates) != 2 || ue.Candidates[0] != "10" || ue.Candidates[1] != "2" {
		t.Fatalf("candidates 应排序：%v", ue.Candidates)
	}
}

func TestSource_ReadsStdinAndSkips(t *testing.T) {
	in := strings.Join([]string{
		"# 注释",
		"",
		"100",
		"not an id",
		"https://www.pixiv.net/artworks/200",
		"/artworks/1 /artworks/2",
		"300",
	}, "\n")

	core, logs := observer.New(zapcore.WarnLevel)
	s := &Source{Stdin: strings.NewReader(in), Log: zap.New(core)}
	got, err := s.ProduceIdentifiers(context.Background())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []domain.WorkID{"100", "200", "300"}
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v want=%v", got, want)
		}
	}

	skipped := logs.FilterMessage("跳过无法解析的行").All()
	if len(skipped) != 2 {
		t.Fatalf("期望 2 条跳过告警，实际 %d", len(skipped))
	}
	first, second := skipped[0].ContextMap(), skipped[1].ContextMap()
	if first["line"] != int64(4) || first["reason"] != "no_match" || second["reason"] != "ambiguous" {
		t.Fatalf("跳过告警不符合预期：%v / %v", first, second)
	}
}

func TestSource_WantCapsAndFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(p, []byte("1\n2\n3\n4\n"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	s := &Source{Path: p, Want: 2}
	got, err := s.ProduceIdentifiers(context.Background())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("want=2 时应只取前两个：%v", got)
	}
}

func TestSource_MissingFile(t *testing.T) {
	s := &Source{Path: filepath.Join(t.TempDir(), "nope.txt")}
	if _, err := s.ProduceIdentifiers(context.Background()); err == nil {
		t.Fatalf("文件不存在应返回错误")
	}
}
