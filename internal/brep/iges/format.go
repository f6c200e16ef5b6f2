// Package iges reads and writes fixed-format IGES files holding polyhedral
// geometry: bounded planes for version 5.1 and manifold solid B-rep objects
// for version 5.3.
package iges

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Section letters in column 73.
const (
	secStart     = 'S'
	secGlobal    = 'G'
	secDirectory = 'D'
	secParameter = 'P'
	secTerminate = 'T'
)

const (
	lineWidth  = 80
	dataWidth  = 72
	paramWidth = 64
	fieldWidth = 8
)

// Status numbers: blank, subordinate, use and hierarchy switches.
const (
	statusIndependent = "00000000"
	statusDependent   = "00010000"
)

// Parse errors.
var (
	ErrMalformed = errors.New("malformed IGES file")
	ErrEmpty     = errors.New("file has no IGES sections")
)

// hollerith is a string parameter, written nH... .
type hollerith string

// entity is one directory entry with its parameter data. Pointer parameters
// hold *entity values and are resolved to DE numbers when the file is
// written.
type entity struct {
	typ    int
	form   int
	status string
	label  string
	params []any

	de int
}

func formatParam(p any) string {
	switch v := p.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case float64:
		return formatReal(v)
	case hollerith:
		if v == "" {
			return ""
		}
		return fmt.Sprintf("%dH%s", len(v), string(v))
	case *entity:
		if v == nil {
			return "0"
		}
		return strconv.Itoa(v.de)
	default:
		panic(fmt.Sprintf("iges: unsupported parameter %T", p))
	}
}

// formatReal writes a real with a decimal point, as 1., 0.25 or 1.E-07.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	mant, exp, hasExp := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += "."
	}
	if hasExp {
		return mant + "E" + exp
	}
	return mant
}

// pack splits tokens into lines of at most width characters. A token is only
// split when it is longer than a whole line.
func pack(tokens []string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, t := range tokens {
		if cur.Len()+len(t) > width && cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		for len(t) > width {
			lines = append(lines, t[:width])
			t = t[width:]
		}
		cur.WriteString(t)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// tokens renders params as one record: each parameter followed by the
// parameter delimiter, the last one by the record delimiter.
func tokens(params []any) []string {
	out := make([]string, len(params))
	for i, p := range params {
		sep := ","
		if i == len(params)-1 {
			sep = ";"
		}
		out[i] = formatParam(p) + sep
	}
	return out
}

// lineWriter emits numbered fixed-format lines.
type lineWriter struct {
	w   *bufio.Writer
	seq map[byte]int
	err error
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: bufio.NewWriter(w), seq: make(map[byte]int)}
}

func (lw *lineWriter) line(section byte, data string) {
	if lw.err != nil {
		return
	}
	lw.seq[section]++
	_, lw.err = fmt.Fprintf(lw.w, "%-72s%c%7d\n", data, section, lw.seq[section])
}

func (lw *lineWriter) flush() error {
	if lw.err != nil {
		return lw.err
	}
	return lw.w.Flush()
}

// record is a parsed directory entry with its raw parameter tokens.
type record struct {
	de     int
	typ    int
	form   int
	status string
	params []string
}

// subordinate returns the subordinate switch of the status number.
func (r *record) subordinate() string {
	if len(r.status) < 4 {
		return "00"
	}
	return r.status[2:4]
}

func (r *record) has(i int) bool {
	return i >= 0 && i < len(r.params) && strings.TrimSpace(r.params[i]) != ""
}

// int returns parameter i (1 is the first after the entity type) or 0.
func (r *record) int(i int) int {
	if !r.has(i) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.params[i]))
	if err != nil {
		f, ferr := parseReal(r.params[i])
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

// count returns parameter i as the number of entries of stride parameters
// starting at parameter from. Negative counts and counts the record is too
// short to hold are malformed.
func (r *record) count(i, from, stride int) (int, error) {
	n := r.int(i)
	if n == 0 {
		return 0, nil
	}
	if n < 0 || n > (len(r.params)-from)/stride {
		return 0, fmt.Errorf("entity %d count %d at parameter %d; %w", r.de, n, i, ErrMalformed)
	}
	return n, nil
}

func (r *record) real(i int) float64 {
	if !r.has(i) {
		return 0
	}
	f, err := parseReal(r.params[i])
	if err != nil {
		return 0
	}
	return f
}

func parseReal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(c rune) rune {
		if c == 'D' || c == 'd' {
			return 'E'
		}
		return c
	}, s)
	return strconv.ParseFloat(s, 64)
}

// document is a parsed IGES file.
type document struct {
	global  []string
	records map[int]*record
	order   []int
}

func (d *document) get(de int) (*record, bool) {
	r, ok := d.records[de]
	return r, ok
}

func parseDocument(r io.Reader) (*document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var global strings.Builder
	var dir []string
	params := make(map[int]string)
	paramSeq := 0
	seen := false
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < dataWidth+1 {
			return nil, fmt.Errorf("line %d is %d columns wide; %w", n, len(line), ErrMalformed)
		}
		seen = true
		data := line[:dataWidth]
		switch line[dataWidth] {
		case secStart, secTerminate:
		case secGlobal:
			global.WriteString(data)
		case secDirectory:
			dir = append(dir, data)
		case secParameter:
			paramSeq++
			seq := paramSeq
			if len(line) >= lineWidth {
				if s, err := strconv.Atoi(strings.TrimSpace(line[dataWidth+1 : lineWidth])); err == nil {
					seq = s
				}
			}
			params[seq] = line[:paramWidth]
		default:
			return nil, fmt.Errorf("line %d: unknown section %q; %w", n, line[dataWidth], ErrMalformed)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seen {
		return nil, ErrEmpty
	}
	if len(dir)%2 != 0 {
		return nil, fmt.Errorf("directory has an odd number of lines; %w", ErrMalformed)
	}

	doc := &document{records: make(map[int]*record)}
	g, err := splitParams(global.String(), ',', ';')
	if err != nil {
		return nil, fmt.Errorf("global section: %w", err)
	}
	doc.global = g

	for i := 0; i < len(dir); i += 2 {
		l1, l2 := dir[i], dir[i+1]
		field := func(l string, k int) string {
			return strings.TrimSpace(l[k*fieldWidth : (k+1)*fieldWidth])
		}
		atoi := func(s string) int {
			n, _ := strconv.Atoi(s)
			return n
		}
		rec := &record{
			de:     i + 1,
			typ:    atoi(field(l1, 0)),
			status: strings.ReplaceAll(l1[8*fieldWidth:9*fieldWidth], " ", "0"),
			form:   atoi(field(l2, 4)),
		}
		if rec.typ == 0 {
			return nil, fmt.Errorf("directory entry %d has no entity type; %w", rec.de, ErrMalformed)
		}
		start, count := atoi(field(l1, 1)), atoi(field(l2, 3))
		var b strings.Builder
		for s := start; s < start+count; s++ {
			b.WriteString(params[s])
		}
		ps, err := splitParams(b.String(), ',', ';')
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", rec.de, err)
		}
		rec.params = ps
		doc.records[rec.de] = rec
		doc.order = append(doc.order, rec.de)
	}
	return doc, nil
}

// splitParams splits free-format parameter data into raw tokens. Hollerith
// strings are returned without their count prefix. Parsing stops at the
// record delimiter.
func splitParams(s string, delim, end byte) ([]string, error) {
	var out []string
	i := 0
	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			return out, nil
		}
		// Hollerith: digits followed by H.
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > i && j < len(s) && s[j] == 'H' {
			n, _ := strconv.Atoi(s[i:j])
			if j+1+n > len(s) {
				return nil, fmt.Errorf("hollerith string overruns data; %w", ErrMalformed)
			}
			out = append(out, s[j+1:j+1+n])
			i = j + 1 + n
			for i < len(s) && s[i] == ' ' {
				i++
			}
		} else {
			k := i
			for k < len(s) && s[k] != delim && s[k] != end {
				k++
			}
			out = append(out, strings.TrimSpace(s[i:k]))
			i = k
		}
		if i >= len(s) {
			return out, nil
		}
		switch s[i] {
		case delim:
			i++
		case end:
			return out, nil
		default:
			return nil, fmt.Errorf("unexpected %q after parameter; %w", s[i], ErrMalformed)
		}
	}
}
