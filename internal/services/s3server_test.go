package services

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeS3 answers the ListObjectsV2 and upload calls both drivers make
type fakeS3 struct {
	mu sync.Mutex
	// pages maps a continuation token ("" for the first call) to a ListBucketResult body
	pages     map[string]string
	listCalls int
	parts     map[int]int64
	completed bool
	puts      int
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{pages: map[string]string{}, parts: map[int]int64{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/xml")

	switch {
	case r.Method == http.MethodGet && q.Get("list-type") == "2":
		f.mu.Lock()
		f.listCalls++
		body, ok := f.pages[q.Get("continuation-token")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchBucket</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = io.WriteString(w, body)

	case r.Method == http.MethodPost && q.Has("uploads"):
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<InitiateMultipartUploadResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Bucket>docs</Bucket><Key>big.bin</Key><UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`)

	case r.Method == http.MethodPut && q.Get("uploadId") != "":
		n, _ := io.Copy(io.Discard, r.Body)
		part, _ := strconv.Atoi(q.Get("partNumber"))
		f.mu.Lock()
		f.parts[part] = n
		f.mu.Unlock()
		w.Header().Set("ETag", fmt.Sprintf(`"part-%d"`, part))

	case r.Method == http.MethodPost && q.Get("uploadId") != "":
		_, _ = io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.completed = true
		f.mu.Unlock()
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<CompleteMultipartUploadResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Bucket>docs</Bucket><Key>big.bin</Key><ETag>"final-etag"</ETag></CompleteMultipartUploadResult>`)

	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.puts++
		f.mu.Unlock()
		w.Header().Set("ETag", `"single-etag"`)

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeS3) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.listCalls
	f.listCalls = 0
	return n
}

func (f *fakeS3) partCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.parts)
}

type listEntry struct {
	key  string
	size int64
}

// listPage renders one ListObjectsV2 page
func listPage(prefix, delimiter string, objects []listEntry, prefixes []string, next string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	b.WriteString(`<Name>docs</Name><Prefix>` + prefix + `</Prefix>`)
	if delimiter != "" {
		b.WriteString(`<Delimiter>` + delimiter + `</Delimiter>`)
	}
	fmt.Fprintf(&b, `<KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys>`, len(objects)+len(prefixes))
	fmt.Fprintf(&b, `<IsTruncated>%t</IsTruncated>`, next != "")
	if next != "" {
		b.WriteString(`<NextContinuationToken>` + next + `</NextContinuationToken>`)
	}
	for _, o := range objects {
		fmt.Fprintf(&b, `<Contents><Key>%s</Key><LastModified>2024-05-01T10:00:00.000Z</LastModified><ETag>"etag-%s"</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`,
			o.key, strings.ReplaceAll(o.key, "/", "_"), o.size)
	}
	for _, p := range prefixes {
		b.WriteString(`<CommonPrefixes><Prefix>` + p + `</Prefix></CommonPrefixes>`)
	}
	b.WriteString(`</ListBucketResult>`)
	return b.String()
}

// oneLevelPage is "docs/" with its own marker, a file and a subfolder
func oneLevelPage() string {
	return listPage("docs/", "/",
		[]listEntry{{key: "docs/"}, {key: "docs/a.txt", size: 5}},
		[]string{"docs/sub/"}, "")
}

// unknownLength hides Seek and ReadAt so drivers cannot learn the size
func unknownLength(n int) io.Reader {
	return struct{ io.Reader }{strings.NewReader(strings.Repeat("x", n))}
}
