package extractor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

func (f *fakeTranscriber) Model() string { return "fake-model" }

func newTestExtractor(t *testing.T, cfg *Config) *Extractor {
	t.Helper()
	ex, err := New(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	return ex
}

func TestExtractPDF(t *testing.T) {
	ex := newTestExtractor(t, nil)
	data := buildPDF(t, "Jane Doe", "Senior Go Engineer")

	res, err := ex.Extract(context.Background(), NewDocument("cv.pdf", data))
	require.NoError(t, err)

	assert.Equal(t, StrategyPlain, res.Strategy)
	assert.Contains(t, res.Text, "Jane Doe")
	assert.Contains(t, res.Text, "Senior Go Engineer")
	assert.Equal(t, res.Text, strings.TrimSpace(res.Text))
}

func TestExtractPDFWithLaterStrategy(t *testing.T) {
	ex := newTestExtractor(t, &Config{PDFStrategies: []string{StrategyRows}})

	res, err := ex.Extract(context.Background(), NewDocument("CV.PDF", buildPDF(t, "Kubernetes")))
	require.NoError(t, err)

	assert.Equal(t, StrategyRows, res.Strategy)
	assert.Contains(t, res.Text, "Kubernetes")
}

func TestExtractDOCX(t *testing.T) {
	ex := newTestExtractor(t, nil)
	body := paragraph("Jane ", "Doe") +
		paragraph("Go, Kubernetes") +
		"<w:tbl><w:tr><w:tc>" + paragraph("Table cell") + "</w:tc></w:tr></w:tbl>" +
		paragraph()

	res, err := ex.Extract(context.Background(), NewDocument("resume.docx", buildDOCX(t, body)))
	require.NoError(t, err)

	assert.Equal(t, StrategyParagraphs, res.Strategy)
	assert.Equal(t, "Jane Doe\nGo, Kubernetes\nTable cell", res.Text)
}

func TestExtractDOCXTabsAndBreaks(t *testing.T) {
	ex := newTestExtractor(t, nil)
	body := `<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t><w:br/><w:t>SQL</w:t></w:r></w:p>`

	res, err := ex.Extract(context.Background(), NewDocument("resume.docx", buildDOCX(t, body)))
	require.NoError(t, err)

	assert.Equal(t, "Skills:\tGo\nSQL", res.Text)
}

func TestExtractDOCXIgnoresTabStops(t *testing.T) {
	ex := newTestExtractor(t, nil)
	tabStops := `<w:pPr><w:tabs><w:tab w:val="left" w:pos="2880"/></w:tabs></w:pPr>`
	body := `<w:p>` + tabStops + `<w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p>` + tabStops + `<w:r><w:t>Skills</w:t></w:r></w:p>`

	res, err := ex.Extract(context.Background(), NewDocument("resume.docx", buildDOCX(t, body)))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe\nSkills", res.Text)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{name: "unsupported extension", doc: NewDocument("notes.txt", []byte("hello")), wantErr: ErrUnsupportedFormat},
		{name: "no extension", doc: NewDocument("resume", []byte("%PDF-1.4")), wantErr: ErrUnsupportedFormat},
		{name: "empty pdf", doc: NewDocument("cv.pdf", nil), wantErr: ErrEmptyFile},
		{name: "whitespace docx", doc: NewDocument("cv.docx", []byte(" \n\t")), wantErr: ErrEmptyFile},
		{name: "docx renamed to pdf", doc: NewDocument("cv.pdf", []byte("PK\x03\x04rest of zip")), wantErr: ErrSignatureMismatch},
		{name: "text renamed to docx", doc: NewDocument("cv.docx", []byte("just some text")), wantErr: ErrSignatureMismatch},
		{name: "corrupt pdf", doc: NewDocument("cv.pdf", []byte("%PDF-1.4\nthis is not really a pdf")), wantErr: ErrNoText},
		{name: "corrupt docx", doc: NewDocument("cv.docx", []byte("PK\x03\x04broken")), wantErr: ErrNoText},
	}

	ex := newTestExtractor(t, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ex.Extract(context.Background(), tt.doc)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)

			var failure *Failure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tt.doc.Name, failure.Filename)
			assert.Contains(t, err.Error(), tt.doc.Name)
		})
	}
}

func TestExtractFailureListsAttempts(t *testing.T) {
	ex := newTestExtractor(t, nil)

	_, err := ex.Extract(context.Background(), NewDocument("cv.pdf", []byte("%PDF-1.4\ngarbage")))

	var failure *Failure
	require.True(t, errors.As(err, &failure))

	// gemini is disabled without a transcriber and is not attempted
	names := make([]string, 0, len(failure.Attempts))
	for _, attempt := range failure.Attempts {
		names = append(names, attempt.Strategy)
		assert.Error(t, attempt.Err)
	}
	assert.Equal(t, []string{StrategyPlain, StrategyPages, StrategyRows}, names)
}

func TestExtractTooLarge(t *testing.T) {
	ex := newTestExtractor(t, &Config{MaxFileSize: 16})

	_, err := ex.Extract(context.Background(), NewDocument("cv.pdf", buildPDF(t, "Jane")))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractDoesNotMutateInput(t *testing.T) {
	ex := newTestExtractor(t, nil)
	data := buildPDF(t, "Jane Doe")
	original := bytes.Clone(data)

	_, err := ex.Extract(context.Background(), NewDocument("cv.pdf", data))
	require.NoError(t, err)

	assert.Equal(t, original, data)
}

func TestExtractFallsBackToTranscriber(t *testing.T) {
	ex, err := New(&Config{PDFStrategies: []string{StrategyPlain, StrategyGemini}}, &fakeTranscriber{text: "Transcribed resume"}, zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(context.Background(), NewDocument("scan.pdf", []byte("%PDF-1.4\nimage only")))
	require.NoError(t, err)

	assert.Equal(t, StrategyGemini, res.Strategy)
	assert.Equal(t, "Transcribed resume", res.Text)
	require.Len(t, res.Attempts, 2)
	assert.Error(t, res.Attempts[0].Err)
	assert.NoError(t, res.Attempts[1].Err)
}

func TestNewRejectsBadStrategies(t *testing.T) {
	_, err := New(&Config{PDFStrategies: []string{"ocr"}}, nil, nil)
	assert.ErrorContains(t, err, "unknown pdf strategy")

	_, err = New(&Config{PDFStrategies: []string{"plain", " Plain "}}, nil, nil)
	assert.ErrorContains(t, err, "listed twice")
}

func TestDescribe(t *testing.T) {
	ex := newTestExtractor(t, nil)

	statuses := ex.Describe()
	require.Len(t, statuses, len(DefaultPDFStrategies)+1)

	gemini := statuses[3]
	assert.Equal(t, StrategyGemini, gemini.Name)
	assert.False(t, gemini.Enabled)
	assert.Equal(t, "ai transcription is not configured", gemini.Reason)

	docx := statuses[4]
	assert.Equal(t, StrategyParagraphs, docx.Name)
	assert.Equal(t, FormatDOCX, docx.Format)
	assert.True(t, docx.Enabled)

	withModel, err := New(nil, &fakeTranscriber{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "model fake-model", withModel.Describe()[3].Reason)
}

func TestDisableByName(t *testing.T) {
	ex := newTestExtractor(t, &Config{PDFStrategies: []string{StrategyPlain, StrategyRows}})
	DisableByName(ex.Strategies(FormatPDF), StrategyPlain, "turned off")

	res, err := ex.Extract(context.Background(), NewDocument("cv.pdf", buildPDF(t, "Jane Doe")))
	require.NoError(t, err)
	assert.Equal(t, StrategyRows, res.Strategy)

	statuses := Describe(ex.Strategies(FormatPDF))
	assert.False(t, statuses[0].Enabled)
	assert.Equal(t, "turned off", statuses[0].Reason)
}

func TestRunOrderAndIsolation(t *testing.T) {
	failing := &fakeStrategy{name: "failing", err: errors.New("cannot parse")}
	panicking := &fakeStrategy{name: "panicking", panics: true}
	blank := &fakeStrategy{name: "blank", text: "  \n\t "}
	slow := &fakeStrategy{name: "slow", text: "too late", delay: time.Second}
	disabled := &fakeStrategy{name: "disabled", text: "should not run"}
	disabled.Disable("off")
	good := &fakeStrategy{name: "good", text: "  Jane Doe  "}
	after := &fakeStrategy{name: "after", text: "never reached"}

	steps := []Strategy{failing, panicking, blank, slow, disabled, good, after}

	text, name, attempts := run(context.Background(), zap.NewNop(), 50*time.Millisecond, []byte("data"), steps)

	assert.Equal(t, "Jane Doe", text)
	assert.Equal(t, "good", name)
	require.Len(t, attempts, 5)

	assert.ErrorContains(t, attempts[1].Err, "panic: boom")
	assert.ErrorIs(t, attempts[2].Err, errBlankOutput)
	assert.ErrorIs(t, attempts[3].Err, context.DeadlineExceeded)

	assert.EqualValues(t, 0, disabled.calls.Load())
	assert.EqualValues(t, 0, after.calls.Load())
	assert.EqualValues(t, 1, good.calls.Load())
}

func TestRunAllFail(t *testing.T) {
	steps := []Strategy{
		&fakeStrategy{name: "a", err: errors.New("a failed")},
		&fakeStrategy{name: "b", text: ""},
	}

	text, name, attempts := run(context.Background(), zap.NewNop(), time.Second, nil, steps)

	assert.Empty(t, text)
	assert.Empty(t, name)
	assert.Len(t, attempts, 2)
}

func TestExtractPassesCopyToStrategies(t *testing.T) {
	spy := &fakeStrategy{name: "spy", text: "ok"}
	ex := &Extractor{
		logger:      zap.NewNop(),
		timeout:     time.Second,
		maxFileSize: defaultMaxFileSize,
		strategies:  map[Format][]Strategy{FormatPDF: {spy}},
	}

	data := []byte("%PDF-1.4 content")
	_, err := ex.Extract(context.Background(), NewDocument("cv.pdf", data))
	require.NoError(t, err)

	require.Equal(t, data, spy.seen)
	spy.seen[0] = 'X'
	assert.Equal(t, byte('%'), data[0])
}
