package scanconfig

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"uiccscan/hexutil"
)

// dbFile mirrors one <DBFile> element of the §6.3 fallback listing.
type dbFile struct {
	Name   string `xml:"NAME"`
	FileID string `xml:"FILEID"`
	Path   string `xml:"PATH"`
}

// arrayOfDBFile mirrors the §6.3 root element.
type arrayOfDBFile struct {
	XMLName xml.Name `xml:"ArrayOfDBFile"`
	Files   []dbFile `xml:"DBFile"`
}

// LoadFileSystemXML reads the external file-system XML fallback (§6.3) and
// returns the absolute hex path of every entry, in document order: each
// path is PATH with "|" separators removed, concatenated with FILEID.
func LoadFileSystemXML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scanconfig: reading %q: %w", path, err)
	}

	var doc arrayOfDBFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scanconfig: parsing %q: %w", path, err)
	}

	paths := make([]string, 0, len(doc.Files))
	for _, f := range doc.Files {
		parent := strings.ReplaceAll(f.Path, "|", "")
		absolute := hexutil.Normalize(parent + f.FileID)
		if absolute == "" {
			continue
		}
		paths = append(paths, absolute)
	}
	return paths, nil
}
