package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/chida-tennis/chida-crawler/internal/logger"
	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

const (
	ListURL   = "https://kato.kr/openList"
	BaseURL   = "https://kato.kr"
	UserAgent = "chida-crawler/1.0 (+https://chida.kr)"
)

// ErrUnexpectedStatus is returned when a page answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status code")

var (
	detailLinkPattern  = regexp.MustCompile(`/openGame/\d+`)
	registrationPeriod = regexp.MustCompile(`접수기간[:\s]*(\d{4}[.\-]\d{1,2}[.\-]\d{1,2})\s*~\s*(\d{4}[.\-]\d{1,2}[.\-]\d{1,2})`)
	defaultFeePattern  = regexp.MustCompile(`참가비[:\s]*([0-9,]+)\s*원`)
)

// Scraper fetches and parses KATO pages.
type Scraper struct {
	client    *http.Client
	listURL   string
	baseURL   string
	userAgent string
	now       func() time.Time
	loc       *time.Location
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the HTTP client. The default client has no timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithListURL overrides the list page address.
func WithListURL(u string) Option {
	return func(s *Scraper) { s.listURL = u }
}

// WithBaseURL overrides the base used to resolve relative links.
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = u }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// WithClock sets the function used to determine "today" for status
// inference and year resolution.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// WithLocation sets the time zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Scraper) { s.loc = loc }
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{},
		listURL:   ListURL,
		baseURL:   BaseURL,
		userAgent: UserAgent,
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detail holds the fields read from one tournament detail page.
type Detail struct {
	LocationDetail    string
	ThumbnailURL      string
	RegistrationStart tournament.Date
	RegistrationEnd   tournament.Date
	Description       string
	Fee               int
	Divisions         []tournament.Division
}

type listItem struct {
	title string
	start tournament.Date
	end   tournament.Date
	link  string
}

func (s *Scraper) today() tournament.Date {
	return tournament.Today(s.now(), s.loc)
}

// ListTournaments fetches the list page and, for every listed tournament,
// its detail page. Items are processed sequentially. A failing detail page
// is logged and replaced by a single default division; a failing list page
// is returned as an error.
func (s *Scraper) ListTournaments(ctx context.Context) ([]*tournament.CrawledTournament, error) {
	start := time.Now()
	logger.Info("Fetching tournament list", logger.Fields{"url": s.listURL})

	doc, err := s.fetch(ctx, s.listURL)
	if err != nil {
		logger.Error("Failed to fetch tournament list", logger.Fields{"url": s.listURL}, err)
		return nil, fmt.Errorf("fetching tournament list: %w", err)
	}
	items := s.parseList(doc)
	logger.RecordTiming("scrape.list", time.Since(start))

	today := s.today()
	tournaments := make([]*tournament.CrawledTournament, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return tournaments, fmt.Errorf("listing cancelled: %w", err)
		}

		detail, err := s.fetchDetail(ctx, item.link, item.start, today)
		if err != nil {
			logger.Warn("Detail page failed, using default division", logger.Fields{
				"url":   item.link,
				"title": item.title,
				"error": err.Error(),
			})
			logger.IncrCounter("scrape.detail_failed")
		}
		tournaments = append(tournaments, assemble(item, detail, today))
	}

	logger.Info("Tournament list crawled", logger.Fields{
		"count":    len(tournaments),
		"duration": time.Since(start).String(),
	})
	return tournaments, nil
}

func assemble(item listItem, detail *Detail, today tournament.Date) *tournament.CrawledTournament {
	region := tournament.ExtractRegion(item.title, tournament.UnspecifiedRegion)

	divisions := detail.Divisions
	if len(divisions) == 0 {
		start := item.start
		if start.IsZero() {
			start = today
		}
		divisions = []tournament.Division{tournament.NewDefaultDivision(start, item.end, detail.Fee)}
	}

	description := detail.Description
	if description == "" {
		description = item.title
	}

	return &tournament.CrawledTournament{
		Title:             item.title,
		Location:          region,
		LocationCity:      region,
		LocationDetail:    detail.LocationDetail,
		Organizer:         tournament.DefaultOrganizer,
		ThumbnailURL:      detail.ThumbnailURL,
		CrawledURL:        item.link,
		RegistrationStart: detail.RegistrationStart,
		RegistrationEnd:   detail.RegistrationEnd,
		Status:            tournament.InferStatus(detail.RegistrationStart, detail.RegistrationEnd, item.start, today),
		Description:       description,
		Divisions:         divisions,
	}
}

// FetchDetail fetches one detail page. Schedule dates without a year are
// placed relative to today. On failure the returned Detail is empty and
// non-nil.
func (s *Scraper) FetchDetail(ctx context.Context, pageURL string) (*Detail, error) {
	return s.fetchDetail(ctx, pageURL, tournament.Date{}, s.today())
}

func (s *Scraper) fetchDetail(ctx context.Context, pageURL string, eventStart, today tournament.Date) (*Detail, error) {
	start := time.Now()
	logger.Debug("Fetching detail page", logger.Fields{"url": pageURL})

	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return &Detail{}, fmt.Errorf("fetching detail page: %w", err)
	}
	detail := s.parseDetail(doc, eventStart, today)
	logger.RecordTiming("scrape.detail", time.Since(start))
	return detail, nil
}

// fetch downloads a page and parses it, decoding the body from the charset
// declared by the response or the document.
func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// parseList extracts the title, date and link sequences and zips them to
// the shortest length.
func (s *Scraper) parseList(doc *goquery.Document) []listItem {
	anchors := doc.Find("a.content-title")
	titles := anchors.Map(func(_ int, sel *goquery.Selection) string {
		return tournament.CleanText(sel.Text())
	})
	dates := doc.Find("div.date").Map(func(_ int, sel *goquery.Selection) string {
		return tournament.CleanText(sel.Text())
	})

	// Links come from the title anchors so that other detail links on the
	// page cannot shift the pairing. Only when some title carries no detail
	// link are the page's anchors scanned instead.
	links := s.detailLinks(anchors)
	if len(links) != len(titles) {
		links = s.detailLinks(doc.Find("a[href]"))
	}

	n := min(len(titles), len(dates), len(links))
	if len(titles) != len(dates) || len(dates) != len(links) {
		logger.Warn("List page sequences differ in length, truncating", logger.Fields{
			"titles": len(titles),
			"dates":  len(dates),
			"links":  len(links),
			"kept":   n,
		})
	}

	items := make([]listItem, 0, n)
	for i := 0; i < n; i++ {
		start, end := tournament.ParseDateRange(dates[i])
		items = append(items, listItem{
			title: titles[i],
			start: start,
			end:   end,
			link:  links[i],
		})
	}
	return items
}

// detailLinks returns the resolved detail links found in sel, in order.
func (s *Scraper) detailLinks(sel *goquery.Selection) []string {
	var links []string
	sel.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if path := detailLinkPattern.FindString(href); path != "" {
			links = append(links, s.resolve(path))
		}
	})
	return links
}

// parseDetail reads every detail field independently; a field that is not
// found is left at its zero value.
func (s *Scraper) parseDetail(doc *goquery.Document, eventStart, today tournament.Date) *Detail {
	detail := &Detail{
		LocationDetail: tournament.CleanText(doc.Find("div.address").First().Text()),
		Description:    tournament.CleanText(doc.Find("div.description").First().Text()),
	}

	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if strings.Contains(strings.ToLower(src), "poster") {
			detail.ThumbnailURL = s.resolve(src)
			return false
		}
		return true
	})

	pageText := tournament.CleanText(doc.Find("body").Text())
	if m := registrationPeriod.FindStringSubmatch(pageText); m != nil {
		detail.RegistrationStart = tournament.ParseDate(m[1])
		detail.RegistrationEnd = tournament.ParseDate(m[2])
	}
	if m := defaultFeePattern.FindStringSubmatch(pageText); m != nil {
		detail.Fee = tournament.ParseFee(m[1])
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if div, ok := parseScheduleRow(row, detail, eventStart, today); ok {
			detail.Divisions = append(detail.Divisions, div)
		}
	})

	if len(detail.Divisions) == 0 {
		date := tournament.ParseDate(pageText)
		if date.IsZero() {
			date = today
		}
		detail.Divisions = []tournament.Division{
			tournament.NewDefaultDivision(date, tournament.Date{}, detail.Fee),
		}
	}
	return detail
}

// parseScheduleRow reads one schedule row: date, division name, start time
// and fee. Rows with fewer than two cells or no date in the first cell are
// rejected.
func parseScheduleRow(row *goquery.Selection, detail *Detail, eventStart, today tournament.Date) (tournament.Division, bool) {
	cells := row.Find("td").Map(func(_ int, sel *goquery.Selection) string {
		return tournament.CleanText(sel.Text())
	})
	if len(cells) < 2 {
		return tournament.Division{}, false
	}

	date := tournament.ParseDate(cells[0])
	if date.IsZero() {
		month, day, ok := tournament.ParseMonthDay(cells[0])
		if !ok {
			return tournament.Division{}, false
		}
		date = tournament.ResolveYear(month, day, eventStart, today)
	}

	name := cells[1]
	if name == "" {
		name = tournament.DefaultDivisionName
	}

	var timeStart string
	if len(cells) > 2 {
		timeStart = tournament.ParseTimeOfDay(cells[2])
	}

	fee := 0
	if len(cells) > 3 {
		fee = tournament.ParseFee(cells[3])
	}
	if fee == 0 {
		fee = detail.Fee
	}

	return tournament.Division{
		Name:      name,
		DateStart: date,
		TimeStart: timeStart,
		Fee:       fee,
		Capacity:  tournament.DefaultCapacity,
		Status:    tournament.InferStatus(detail.RegistrationStart, detail.RegistrationEnd, date, today),
	}, true
}

// resolve turns a possibly relative reference into an absolute URL on the
// configured base.
func (s *Scraper) resolve(ref string) string {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
