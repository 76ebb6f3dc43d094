package ingest

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var pageRe = regexp.MustCompile(`(?i)page[_-]?(\d+)`)

var imageExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// LoadImagesFromDir reads extracted slide images from dir. The page number is
// taken from a "page<N>" token in the file name, and a sibling .txt file with
// the same base name supplies the surrounding text.
func LoadImagesFromDir(dir string) ([]ImageInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	images := make([]ImageInput, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		mime := imageExts[strings.ToLower(filepath.Ext(name))]
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			mime = sniffed
		}
		in := ImageInput{Data: data, MIMEType: mime, PageNumber: pageNumber(name)}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if txt, err := os.ReadFile(filepath.Join(dir, base+".txt")); err == nil {
			in.Text = strings.TrimSpace(string(txt))
		}
		images = append(images, in)
	}
	return images, nil
}

func pageNumber(name string) int {
	m := pageRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
