package subtitle

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Unqualified tags match any namespace, so tt:body and a default-namespaced
// body decode the same way.
type xmlDocument struct {
	XMLName            xml.Name `xml:"tt"`
	Language           *string  `xml:"lang,attr"`
	SequenceIdentifier *string  `xml:"sequenceIdentifier,attr"`
	SequenceNumber     *string  `xml:"sequenceNumber,attr"`
	ClockMode          *string  `xml:"clockMode,attr"`
	TimeBase           *string  `xml:"timeBase,attr"`
	Head               *xmlHead `xml:"head"`
	Body               *xmlBody `xml:"body"`
}

type xmlHead struct {
	Metadata *struct {
		Title     string `xml:"title"`
		Desc      string `xml:"desc"`
		Copyright string `xml:"copyright"`
		Agent     string `xml:"agent"`
		Actor     string `xml:"actor"`
	} `xml:"metadata"`
	Styling *struct {
		Lang string `xml:"lang,attr"`
	} `xml:"styling"`
}

type xmlTiming struct {
	Begin *string `xml:"begin,attr"`
	End   *string `xml:"end,attr"`
	Dur   *string `xml:"dur,attr"`
}

type xmlBody struct {
	xmlTiming
	Divs []struct {
		Paragraphs []xmlParagraph `xml:"p"`
	} `xml:"div"`
}

type xmlParagraph struct {
	xmlTiming
	Spans []struct {
		Text string `xml:",chardata"`
	} `xml:"span"`
}

// DecodeTTML reads one EBU-TTML-Live document. Errors wrap domain.ErrSubtitleParse.
func DecodeTTML(r io.Reader) (*domain.Document, error) {
	var raw xmlDocument
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode ttml: %w", domain.ErrSubtitleParse, err)
	}

	doc := &domain.Document{
		SequenceIdentifier: raw.SequenceIdentifier,
		Language:           raw.Language,
		ClockMode:          raw.ClockMode,
		TimeBase:           raw.TimeBase,
	}

	if raw.SequenceNumber != nil {
		n, err := strconv.ParseUint(strings.TrimSpace(*raw.SequenceNumber), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sequence number: %w", domain.ErrSubtitleParse, err)
		}
		doc.SequenceNumber = &n
	}

	if raw.Head != nil {
		head := &domain.Head{}
		if m := raw.Head.Metadata; m != nil {
			head.Title = strings.TrimSpace(m.Title)
			head.Description = strings.TrimSpace(m.Desc)
			head.Copyright = strings.TrimSpace(m.Copyright)
			head.Agent = strings.TrimSpace(m.Agent)
			head.Actor = strings.TrimSpace(m.Actor)
		}
		if raw.Head.Styling != nil {
			head.StylingLang = raw.Head.Styling.Lang
		}
		doc.Head = head
	}

	if raw.Body == nil {
		return doc, nil
	}

	body := &domain.Body{}
	var err error
	if body.Begin, body.End, body.Duration, err = raw.Body.parse(); err != nil {
		return nil, fmt.Errorf("body timing: %w", err)
	}

	for i, d := range raw.Body.Divs {
		div := domain.Div{Paragraphs: make([]domain.Paragraph, 0, len(d.Paragraphs))}
		for j, p := range d.Paragraphs {
			para := domain.Paragraph{}
			if para.Begin, para.End, para.Duration, err = p.parse(); err != nil {
				return nil, fmt.Errorf("div %d paragraph %d timing: %w", i, j, err)
			}
			for _, s := range p.Spans {
				para.Spans = append(para.Spans, domain.Span{Text: s.Text})
			}
			div.Paragraphs = append(div.Paragraphs, para)
		}
		body.Divs = append(body.Divs, div)
	}

	doc.Body = body
	return doc, nil
}

func (t xmlTiming) parse() (begin, end, dur *domain.TimeExpression, err error) {
	if begin, err = parseOptional(t.Begin); err != nil {
		return nil, nil, nil, fmt.Errorf("begin: %w", err)
	}
	if end, err = parseOptional(t.End); err != nil {
		return nil, nil, nil, fmt.Errorf("end: %w", err)
	}
	if dur, err = parseOptional(t.Dur); err != nil {
		return nil, nil, nil, fmt.Errorf("dur: %w", err)
	}
	return begin, end, dur, nil
}

func parseOptional(v *string) (*domain.TimeExpression, error) {
	if v == nil {
		return nil, nil
	}
	return ParseTimeExpression(*v)
}
