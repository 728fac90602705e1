package retriever

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"reelbatch/internal/config"
	"reelbatch/internal/consts"
	"reelbatch/internal/credential"
	"reelbatch/internal/errs"
	"reelbatch/internal/observability"
	"reelbatch/internal/proxy"
	"reelbatch/pkg/maths"

	"github.com/lrstanley/go-ytdlp"
)

var (
	maxJSONSize = 10 * 1024 * 1024                                       // 10 MiB scanner buffer
	bufSize     = 4096                                                   // 4 KiB initial buffer
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path line

	// changing this breaks parseStdout().
	printAfterMove = "after_move:filepath"
)

// itemTemplate names retrieved files by extractor item id so concurrent items
// never write colliding filenames.
const itemTemplate = "%(id)s.%(ext)s"

// YTdlp retrieves URLs by shelling out to yt-dlp.
type YTdlp struct {
	log      *slog.Logger
	cfg      *config.Config
	proxyMgr *proxy.Manager
	metrics  *observability.Metrics
}

// NewYTdlp creates a new yt-dlp retriever.
func NewYTdlp(log *slog.Logger, cfg *config.Config, proxyMgr *proxy.Manager, metrics *observability.Metrics) Retriever {
	return &YTdlp{
		log:      log.With(slog.String("package", "retriever"), slog.String("retriever", consts.RetrieverYTdlp)),
		cfg:      cfg,
		proxyMgr: proxyMgr,
		metrics:  metrics,
	}
}

// Retrieve fetches one URL into destDir. A missing output file after a
// declared success triggers a scan of destDir for the reported item id before
// giving up.
func (r *YTdlp) Retrieve(ctx context.Context, rawURL, destDir string, cred *credential.Credential) (*Retrieved, error) {
	log := r.log.With(slog.String("url", rawURL))

	command := ytdlp.New().
		Format(r.cfg.Retrieve.Format).
		Output(filepath.Join(destDir, itemTemplate)).
		NoPlaylist().
		UserAgent(r.cfg.Retrieve.UserAgent).
		PrintJSON().Print(printAfterMove)

	if cred.CookieFile() != "" {
		command = command.Cookies(cred.CookieFile())
	}

	proxyURL := r.pickProxy(ctx, log)
	if proxyURL != "" {
		command = command.Proxy(proxyURL)
	}

	res, err := command.Run(ctx, rawURL)
	if err != nil {
		if proxyURL != "" {
			r.proxyMgr.MarkFailure(proxyURL)
		}

		r.metrics.RecordRetrieverError(consts.RetrieverYTdlp, classifyError(err))
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", Result{res}))

		return nil, fmt.Errorf("ytdlp run: %w: %w", errs.ErrRetrievalFailed, err)
	}

	result, err := parseStdout(res.Stdout)
	if err != nil {
		r.metrics.RecordRetrieverError(consts.RetrieverYTdlp, "parse")

		return nil, fmt.Errorf("parse ytdlp stdout: %w: %w", errs.ErrRetrievalFailed, err)
	}

	localPath, err := verifyOrRecover(result.Filename, result.ID, destDir)
	if err != nil {
		r.metrics.RecordRetrieverError(consts.RetrieverYTdlp, "missing_file")

		return nil, fmt.Errorf("verify output: %w", err)
	}

	r.metrics.RecordRetrieverRequest(consts.RetrieverYTdlp, "ok")
	log.DebugContext(ctx, "retrieved", slog.String("path", localPath), slog.String("item_id", result.ID))

	return &Retrieved{
		Path:     localPath,
		ID:       result.ID,
		Title:    result.Title,
		Duration: maths.RoundFloat64ToInt(result.Duration),
		Width:    result.Width,
		Height:   result.Height,
	}, nil
}

func (r *YTdlp) pickProxy(ctx context.Context, log *slog.Logger) string {
	if r.proxyMgr == nil || r.proxyMgr.Count() == 0 {
		return ""
	}

	proxyURL, err := r.proxyMgr.Pick(ctx)
	if err != nil {
		log.WarnContext(ctx, "no healthy proxy, going direct", slog.Any("error", err))

		return ""
	}

	return proxyURL
}

// parseStdout picks the extracted-info JSON line and the after_move filepath
// line out of yt-dlp's stdout. The filepath line follows its JSON line.
func parseStdout(stdout string) (*resultJSON, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var result *resultJSON

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r resultJSON
		if err := json.Unmarshal([]byte(line), &r); err == nil && r.ID != "" {
			result = &r

			continue
		}

		if result != nil && result.Filename == "" && reFilepath.MatchString(line) {
			result.Filename = line
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stdout: %w", err)
	}

	if result == nil {
		return nil, fmt.Errorf("no extracted info in stdout")
	}

	return result, nil
}

// verifyOrRecover confirms the declared file exists and is non-empty. When
// the declared path is missing, destDir is scanned for a file whose name
// contains the item id, which recovers renames done by post-processors.
func verifyOrRecover(declared, itemID, destDir string) (string, error) {
	if declared != "" {
		if info, err := os.Stat(declared); err == nil && info.Size() > 0 {
			return declared, nil
		}
	}

	if itemID != "" {
		matches, err := filepath.Glob(filepath.Join(destDir, "*"+itemID+"*"))
		if err == nil {
			for _, m := range matches {
				if info, statErr := os.Stat(m); statErr == nil && info.Size() > 0 {
					return m, nil
				}
			}
		}
	}

	return "", fmt.Errorf("declared %q, item id %q: %w", declared, itemID, errs.ErrFileMissing)
}
