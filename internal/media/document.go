package media

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"strings"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/logger"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin    = 20.0
	headerHeight  = 40.0
	photoWidth    = 35.0
	pageBottom    = 280.0
	fallbackTitle = "Candidate Profile"
	subtitle      = "AI-Generated Video Interview Profile"
	photoImage    = "photo"
)

// Section names, in layout order.
const (
	SectionHeader     = "header"
	SectionPhoto      = "photo"
	SectionSummary    = "summary"
	SectionSkills     = "skills"
	SectionTags       = "tags"
	SectionTranscript = "transcript"
)

// documentEpoch is stamped as creation and modification date so identical
// inputs give identical bytes.
var documentEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type rgb struct{ r, g, b int }

var (
	indigo = rgb{79, 70, 229}
	slate  = rgb{51, 65, 85}
	white  = rgb{255, 255, 255}
)

// CVSynthesizer lays out a one-candidate CV as an A4 PDF.
type CVSynthesizer struct {
	log *slog.Logger
}

func NewCVSynthesizer(log *slog.Logger) *CVSynthesizer {
	return &CVSynthesizer{log: logger.Or(log)}
}

type cvLayout struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	width    float64
	content  float64
	y        float64
	sections []string
}

func (s *CVSynthesizer) Synthesize(p domain.Profile, photo *domain.Photo) (*domain.Document, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(documentEpoch)
	pdf.SetModificationDate(documentEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(titleOf(p), true)
	pdf.AddPage()

	width, _ := pdf.GetPageSize()
	l := &cvLayout{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		width:   width,
		content: width - 2*pageMargin,
	}

	l.header(p)
	if photo != nil && len(photo.JPEG) > 0 {
		if err := l.photo(photo); err != nil {
			s.log.Warn("cv: photo omitted", "error", err)
		}
	}
	l.summary(p.ProfessionalSummary)
	l.skills(p.HardSkills, p.SoftSkills)
	l.tags(p.Tags)
	l.transcript(p.Transcript)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering cv: %w", err)
	}
	return &domain.Document{
		Data:     buf.Bytes(),
		Pages:    pdf.PageCount(),
		Sections: l.sections,
	}, nil
}

func titleOf(p domain.Profile) string {
	if name := strings.TrimSpace(p.CandidateName); name != "" {
		return name
	}
	return fallbackTitle
}

func (l *cvLayout) color(c rgb) {
	l.pdf.SetTextColor(c.r, c.g, c.b)
}

func (l *cvLayout) header(p domain.Profile) {
	pdf := l.pdf
	pdf.SetFillColor(indigo.r, indigo.g, indigo.b)
	pdf.Rect(0, 0, l.width, headerHeight, "F")

	l.color(white)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.Text(pageMargin, 20, l.tr(titleOf(p)))
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(pageMargin, 28, subtitle)
	l.sections = append(l.sections, SectionHeader)
}

// photo anchors the still top-right inside a white disc. Its height follows
// the source aspect ratio; the circular clip hides any overhang.
func (l *cvLayout) photo(photo *domain.Photo) error {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(photo.JPEG))
	if err != nil {
		return fmt.Errorf("decoding photo: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("photo has no pixels")
	}
	height := PhotoHeight(photoWidth, cfg.Width, cfg.Height)

	pdf := l.pdf
	cx := l.width - pageMargin - photoWidth/2
	cy := 20.0
	pdf.SetFillColor(white.r, white.g, white.b)
	pdf.Circle(cx, cy, photoWidth/2+2, "F")

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(photoImage, opts, bytes.NewReader(photo.JPEG))
	pdf.ClipCircle(cx, cy, photoWidth/2, false)
	pdf.ImageOptions(photoImage, l.width-pageMargin-photoWidth, cy-height/2, photoWidth, height, false, opts, 0, "")
	pdf.ClipEnd()
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		return err
	}
	l.sections = append(l.sections, SectionPhoto)
	return nil
}

// PhotoHeight scales a w×h source to the given width.
func PhotoHeight(width float64, w, h int) float64 {
	return width * float64(h) / float64(w)
}

func (l *cvLayout) summary(text string) {
	pdf := l.pdf
	l.y = 50
	l.color(slate)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(pageMargin, l.y, "Professional Summary")
	l.y += 8

	pdf.SetFont("Helvetica", "I", 10)
	for _, line := range l.split(text, l.content) {
		l.ensure(5)
		pdf.Text(pageMargin, l.y, line)
		l.y += 5
	}
	l.y += 10
	l.sections = append(l.sections, SectionSummary)
}

// skills renders two columns. Each row is as tall as its longer wrapped
// entry and moves to a new page when it does not fit.
func (l *cvLayout) skills(hard, soft []string) {
	pdf := l.pdf
	col := l.content / 2
	l.ensure(11)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(pageMargin, l.y, "Hard Skills")
	pdf.Text(pageMargin+col, l.y, "Soft Skills")
	l.y += 6

	pdf.SetFont("Helvetica", "", 10)
	rows := max(len(hard), len(soft))
	for i := 0; i < rows; i++ {
		left := l.bullet(hard, i, col-4)
		right := l.bullet(soft, i, col-4)
		n := max(len(left), len(right))
		if n == 0 {
			continue
		}
		l.ensure(float64(n) * 5)
		for j, line := range left {
			pdf.Text(pageMargin, l.y+float64(j)*5, line)
		}
		for j, line := range right {
			pdf.Text(pageMargin+col, l.y+float64(j)*5, line)
		}
		l.y += float64(n) * 5
	}
	l.y += 10
	l.sections = append(l.sections, SectionSkills)
}

func (l *cvLayout) bullet(items []string, i int, width float64) []string {
	if i >= len(items) || strings.TrimSpace(items[i]) == "" {
		return nil
	}
	return l.split("• "+items[i], width)
}

func (l *cvLayout) tags(tags []string) {
	pdf := l.pdf
	l.ensure(11)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(pageMargin, l.y, "Tags")
	l.y += 6

	pdf.SetFont("Helvetica", "", 9)
	l.color(indigo)
	for _, line := range l.split(TagLine(tags), l.content) {
		l.ensure(5)
		pdf.Text(pageMargin, l.y, line)
		l.y += 5
	}
	l.y += 10
	l.sections = append(l.sections, SectionTags)
}

// TagLine renders tags as "#a  #b".
func TagLine(tags []string) string {
	marked := make([]string, len(tags))
	for i, t := range tags {
		marked[i] = "#" + t
	}
	return strings.Join(marked, "  ")
}

// transcript moves to a fresh page when it does not fit below the tags and
// keeps flowing onto further pages as needed.
func (l *cvLayout) transcript(text string) {
	pdf := l.pdf
	pdf.SetFont("Helvetica", "", 9)
	lines := l.split(text, l.content)
	if l.y+6+float64(len(lines))*4 > pageBottom {
		l.newPage()
	}

	l.color(slate)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(pageMargin, l.y, "Transcript")
	l.y += 6

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range lines {
		l.ensure(4)
		pdf.Text(pageMargin, l.y, line)
		l.y += 4
	}
	l.sections = append(l.sections, SectionTranscript)
}

// ensure starts a new page when h more millimetres would pass the bottom.
func (l *cvLayout) ensure(h float64) {
	if l.y+h > pageBottom {
		l.newPage()
	}
}

func (l *cvLayout) newPage() {
	l.pdf.AddPage()
	l.y = pageMargin
}

// split wraps text to width with the current font, breaking words that are
// wider than a whole line. The core fonts measure cp1252 bytes, so each byte
// is carried as the rune of the same value through SplitText and back.
func (l *cvLayout) split(text string, width float64) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	encoded := []byte(l.tr(text))
	runes := make([]rune, len(encoded))
	for i, b := range encoded {
		runes[i] = rune(b)
	}
	lines := l.pdf.SplitText(string(runes), width)
	for i, line := range lines {
		raw := []rune(line)
		out := make([]byte, len(raw))
		for j, r := range raw {
			out[j] = byte(r)
		}
		lines[i] = string(out)
	}
	return lines
}
