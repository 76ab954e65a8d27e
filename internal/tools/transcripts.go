package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/mdedit"
	"github.com/braindrive/library/pkg/pathguard"
)

const transcriptsIndexPath = "transcripts/index.md"

func ingestTranscript(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "content", "filename", "date", "project", "source")
	if err != nil {
		return nil, err
	}

	rawContent, err := payload.Require(p, "content", "MISSING_CONTENT", "content is required.")
	if err != nil {
		return nil, err
	}

	content, err := payload.String("content", rawContent)
	if err != nil {
		return nil, err
	}

	dateValue, hasDate, err := payload.OptString(p, "date")
	if err != nil {
		return nil, err
	}

	if !hasDate || dateValue == "" {
		dateValue = ctx.now().Format("2006-01-02")
	}

	parsedDate, err := parseTimestamp(dateValue)
	if err != nil {
		return nil, mcperr.New("INVALID_DATE", "date must be ISO format (YYYY-MM-DD).", map[string]any{"date": dateValue})
	}

	filename, hasFilename, err := payload.OptString(p, "filename")
	if err != nil {
		return nil, err
	}

	if !hasFilename || filename == "" {
		filename = fmt.Sprintf("transcript-%s.md", parsedDate.Format("20060102-150405"))
	}

	project, _, err := payload.OptString(p, "project")
	if err != nil {
		return nil, err
	}

	source, _, err := payload.OptString(p, "source")
	if err != nil {
		return nil, err
	}

	folder := parsedDate.Format("2006-01")
	transcriptRel := "transcripts/" + folder + "/" + filename

	transcriptAbs, err := pathguard.Validate(ctx.LibraryRoot, transcriptRel)
	if err != nil {
		return nil, err
	}

	transcriptRel = pathguard.Relative(ctx.LibraryRoot, transcriptAbs)

	err = os.MkdirAll(filepath.Dir(transcriptAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Transcript could not be written.", map[string]any{"path": transcriptRel})
	}

	err = atomicfile.WriteText(transcriptAbs, content)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Transcript could not be written.", map[string]any{"path": transcriptRel})
	}

	indexAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(transcriptsIndexPath))

	err = os.MkdirAll(filepath.Dir(indexAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Transcript index could not be written.", map[string]any{"path": transcriptsIndexPath})
	}

	entryParts := []string{dateValue, transcriptRel}

	if project != "" {
		entryParts = append(entryParts, "project:"+project)
	}

	if source != "" {
		entryParts = append(entryParts, "source:"+source)
	}

	indexContent := readTextOrEmpty(indexAbs)
	updatedIndex := mdedit.JoinWithNewline(indexContent, strings.Join(entryParts, " - "))

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(indexAbs, updatedIndex)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Transcript index could not be written.", map[string]any{"path": transcriptsIndexPath})
	}

	sha, err := txn.CommitKeepFiles(engine.Mutation{
		Operation: "ingest_transcript",
		Target:    transcriptRel,
		Staged:    []string{transcriptRel, transcriptsIndexPath},
		Summary:   "ingest transcript",
	}, "Git commit failed; mutation rolled back.", map[string]any{
		"path":      transcriptRel,
		"operation": "ingest_transcript",
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha, "path": transcriptRel}, nil
}
