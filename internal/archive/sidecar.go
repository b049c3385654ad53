package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sidecar column headers as published alongside baseline archives.
const (
	columnArticleFile = "Article File"
	columnRetracted   = "Retracted"
)

// parseSidecar reads the filelist CSV and returns the set of document file
// names (archive path fragment after the folder prefix) whose retraction
// flag is "yes".
func parseSidecar(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filelist %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read filelist header %s: %w", path, err)
	}
	fileIdx, retractedIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case columnArticleFile:
			fileIdx = i
		case columnRetracted:
			retractedIdx = i
		}
	}
	if fileIdx < 0 || retractedIdx < 0 {
		return nil, fmt.Errorf("filelist %s: missing %q or %q column", path, columnArticleFile, columnRetracted)
	}

	retracted := make(map[string]struct{})
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read filelist row %s: %w", path, err)
		}
		if len(row) <= fileIdx || len(row) <= retractedIdx {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(row[retractedIdx]), "yes") {
			continue
		}
		retracted[documentName(row[fileIdx])] = struct{}{}
	}
	return retracted, nil
}

// documentName extracts the file name from an "Article File" value such as
// "folder/PMC123456.xml". The fragment after the first slash is the name
// inside the archive's nested folder.
func documentName(articleFile string) string {
	parts := strings.SplitN(strings.TrimSpace(articleFile), "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return parts[0]
}
