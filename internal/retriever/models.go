package retriever

import (
	"fmt"
	"log/slog"

	"github.com/lrstanley/go-ytdlp"
)

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	var outputLogs string
	for _, line := range r.OutputLogs {
		outputLogs += fmt.Sprintf("%s\n", line)
	}

	return slog.GroupValue(
		slog.String("executable", r.Executable),
		slog.String("args", fmt.Sprintf("%v", r.Args)),
		slog.String("stdout", r.Stdout),
		slog.String("stderr", r.Stderr),
		slog.String("output_logs", outputLogs),
	)
}

// resultJSON is the subset of yt-dlp's JSON output the retriever needs.
type resultJSON struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Ext      string  `json:"ext"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`

	// Filename is filled from the after_move:filepath print line that
	// follows the JSON line on stdout, not from the JSON itself.
	Filename string `json:"-"`
}
