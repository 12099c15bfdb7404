package corpus

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// parseTitle returns the text of the first <title> element in an SVG file.
// Unreadable or malformed files yield an empty title.
func parseTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(strings.ToLower(path), ".svgz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return ""
		}
		defer gz.Close()
		r = gz
	}
	return readTitle(r)
}

func readTitle(r io.Reader) string {
	l := xml.NewLexer(parse.NewInput(r))
	inTitle := false
	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			return ""
		case xml.StartTagToken:
			inTitle = localName(l.Text()) == "title"
		case xml.StartTagCloseVoidToken:
			inTitle = false
		case xml.EndTagToken:
			if inTitle {
				return ""
			}
		case xml.TextToken:
			if inTitle {
				return strings.TrimSpace(unescape(string(data)))
			}
		case xml.CDATAToken:
			if inTitle {
				return strings.TrimSpace(string(l.Text()))
			}
		}
	}
}

func localName(name []byte) string {
	s := string(name)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescape(s string) string {
	return entityReplacer.Replace(s)
}
