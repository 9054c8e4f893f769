package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pdf-signer/internal/domain"

	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})         {}

// fakeBlobStore is an in-memory BlobStore that can be told to fail specific URLs.
type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failURLs map[string]error
	storeErr error
	stored   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:  make(map[string][]byte),
		failURLs: make(map[string]error),
	}
}

func (f *fakeBlobStore) put(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[url] = data
}

func (f *fakeBlobStore) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failURLs[url]; err != nil {
		return nil, err
	}
	data, ok := f.objects[url]
	if !ok {
		return nil, errors.New("not found: " + url)
	}
	return data, nil
}

func (f *fakeBlobStore) Store(_ context.Context, bucket domain.Bucket, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	url := fmt.Sprintf("https://blobs.test/%s/%s", bucket, name)
	f.objects[url] = data
	f.stored = append(f.stored, url)
	return url, nil
}

// buildTestPDF writes a minimal PDF with one stroked line per page.
func buildTestPDF(pages ...domain.PageSize) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
	}
	for i, p := range pages {
		content := "0 0 m 10 10 l S"
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [%s %s %s %s] /Contents %d 0 R /Resources << >> >>",
				num(p.OriginX), num(p.OriginY), num(p.OriginX+p.Width), num(p.OriginY+p.Height), 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	return writePDF(objects)
}

// buildInheritedFontPDF writes a one-page A4 PDF whose font lives in the /Pages node
// and is only reachable from the page through inheritance.
func buildInheritedFontPDF() []byte {
	content := "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"
	return writePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [4 0 R] /Count 1 /Resources << /Font << /F1 3 0 R >> >> >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 5 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	})
}

// writePDF numbers objects from 1 in order, with object 1 as the catalog.
func writePDF(objects []string) []byte {
	var buf bytes.Buffer
	offsets := make([]int, len(objects))

	buf.WriteString("%PDF-1.4\n")
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// pageResourceNames reloads pdf and lists the names in the /key category of the
// resources a page declares itself, ignoring anything inherited from the page tree.
func pageResourceNames(t *testing.T, pdf []byte, pageNr int, key string) []string {
	t.Helper()
	ctx, err := loadPDF(pdf)
	require.NoError(t, err)

	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	require.NoError(t, err)
	obj, found := pageDict.Find("Resources")
	require.True(t, found, "page has no /Resources of its own")
	res, err := ctx.DereferenceDict(obj)
	require.NoError(t, err)

	var names []string
	if sub, found := res.Find(key); found {
		d, err := ctx.DereferenceDict(sub)
		require.NoError(t, err)
		for name := range d {
			names = append(names, name)
		}
	}
	return names
}

// pageContents reloads pdf and returns the decoded content of each page.
func pageContents(t *testing.T, pdf []byte) []string {
	t.Helper()
	ctx, err := loadPDF(pdf)
	require.NoError(t, err)

	out := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageDict, _, _, err := ctx.PageDict(pageNr, false)
		require.NoError(t, err)
		content, err := ctx.PageContent(pageDict, pageNr)
		require.NoError(t, err)
		out = append(out, string(content))
	}
	return out
}
