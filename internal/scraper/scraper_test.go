package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/korean"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

var kst = time.FixedZone("KST", 9*60*60)

const listPage = `<html><body>
<ul class="content-list">
  <li>
    <a class="content-title" href="/openGame/101">2026 경북 오픈</a>
    <div class="date">2026.03.07 ~ 2026.03.08</div>
  </li>
</ul>
</body></html>`

const detailPage = `<html><body>
<div class="address">경북 안동시 안동테니스장</div>
<img src="/upload/poster_101.jpg" alt="poster">
<table>
  <tr><th>일자</th><th>부서</th><th>시간</th><th>참가비</th></tr>
  <tr><td>03.07(토)</td><td>개나리부</td><td>09:00</td><td>54,000원</td></tr>
</table>
</body></html>`

// pages maps request paths to HTML bodies; any other path answers 404.
type pages map[string]string

func newTestServer(t *testing.T, p pages) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := p[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(srv *httptest.Server, today time.Time) *Scraper {
	return New(
		WithHTTPClient(srv.Client()),
		WithListURL(srv.URL+"/openList"),
		WithBaseURL(srv.URL),
		WithClock(func() time.Time { return today }),
		WithLocation(kst),
	)
}

func TestListTournaments_EndToEnd(t *testing.T) {
	srv := newTestServer(t, pages{
		"/openList":     listPage,
		"/openGame/101": detailPage,
	})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 10, 0, 0, 0, kst))

	got, err := s.ListTournaments(context.Background())
	if err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tournaments, want 1", len(got))
	}
	tr := got[0]

	if tr.Title != "2026 경북 오픈" {
		t.Errorf("Title = %q", tr.Title)
	}
	if tr.LocationCity != "경북" || tr.Location != "경북" {
		t.Errorf("Location = %q / %q, want 경북", tr.Location, tr.LocationCity)
	}
	if tr.LocationDetail != "경북 안동시 안동테니스장" {
		t.Errorf("LocationDetail = %q", tr.LocationDetail)
	}
	if tr.Organizer != "KATO" {
		t.Errorf("Organizer = %q", tr.Organizer)
	}
	if tr.CrawledURL != srv.URL+"/openGame/101" {
		t.Errorf("CrawledURL = %q", tr.CrawledURL)
	}
	if tr.ThumbnailURL != srv.URL+"/upload/poster_101.jpg" {
		t.Errorf("ThumbnailURL = %q", tr.ThumbnailURL)
	}
	if tr.Description != tr.Title {
		t.Errorf("Description = %q, want title", tr.Description)
	}
	if tr.Status != tournament.StatusRecruiting {
		t.Errorf("Status = %q, want recruiting", tr.Status)
	}

	if len(tr.Divisions) != 1 {
		t.Fatalf("got %d divisions, want 1", len(tr.Divisions))
	}
	d := tr.Divisions[0]
	if d.Name != "개나리부" {
		t.Errorf("Division.Name = %q", d.Name)
	}
	if d.Fee != 54000 {
		t.Errorf("Division.Fee = %d, want 54000", d.Fee)
	}
	if d.DateStart.String() != "2026-03-07" {
		t.Errorf("Division.DateStart = %s, want 2026-03-07", d.DateStart)
	}
	if d.TimeStart != "09:00" {
		t.Errorf("Division.TimeStart = %q", d.TimeStart)
	}
	if d.Capacity != 32 {
		t.Errorf("Division.Capacity = %d", d.Capacity)
	}
	if d.Status != tournament.StatusRecruiting {
		t.Errorf("Division.Status = %q", d.Status)
	}
	if tr.RepresentativeFee() != 54000 {
		t.Errorf("RepresentativeFee() = %d", tr.RepresentativeFee())
	}
}

func TestListTournaments_DetailFailureFallsBack(t *testing.T) {
	srv := newTestServer(t, pages{"/openList": listPage})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 10, 0, 0, 0, kst))

	got, err := s.ListTournaments(context.Background())
	if err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tournaments, want 1", len(got))
	}

	divs := got[0].Divisions
	if len(divs) != 1 {
		t.Fatalf("got %d divisions, want 1 fallback", len(divs))
	}
	d := divs[0]
	if d.Name != tournament.DefaultDivisionName || d.Capacity != 32 || d.Status != tournament.StatusRecruiting {
		t.Errorf("fallback division = %+v", d)
	}
	if d.DateStart.String() != "2026-03-07" || d.DateEnd.String() != "2026-03-08" {
		t.Errorf("fallback dates = %s ~ %s", d.DateStart, d.DateEnd)
	}
	if d.Fee != 0 {
		t.Errorf("fallback fee = %d, want 0", d.Fee)
	}
	if got[0].LocationDetail != "" {
		t.Errorf("LocationDetail = %q, want empty", got[0].LocationDetail)
	}
}

func TestListTournaments_ListFailure(t *testing.T) {
	srv := newTestServer(t, pages{})
	s := newTestScraper(srv, time.Now())

	got, err := s.ListTournaments(context.Background())
	if err == nil {
		t.Fatal("ListTournaments() should fail when the list page is missing")
	}
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("error = %v, want ErrUnexpectedStatus", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d tournaments, want 0", len(got))
	}
}

func TestListTournaments_TruncatesToShortest(t *testing.T) {
	list := `<html><body>
<a class="content-title" href="/openGame/1">서울 오픈</a>
<div class="date">2026.04.04</div>
<a class="content-title" href="/openGame/2">부산 오픈</a>
</body></html>`
	srv := newTestServer(t, pages{"/openList": list})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	got, err := s.ListTournaments(context.Background())
	if err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tournaments, want 1", len(got))
	}
	if got[0].Title != "서울 오픈" || got[0].LocationCity != "서울" {
		t.Errorf("tournament = %q in %q", got[0].Title, got[0].LocationCity)
	}
	// A single date means the event ends the day it starts.
	d := got[0].Divisions[0]
	if d.DateStart.String() != "2026-04-04" || d.EndDate().String() != "2026-04-04" {
		t.Errorf("dates = %s ~ %s", d.DateStart, d.EndDate())
	}
}

func TestListTournaments_UnknownRegion(t *testing.T) {
	list := `<a class="content-title" href="/openGame/7">전국 동호인 대회</a><div class="date">2026.05.01</div>`
	srv := newTestServer(t, pages{"/openList": list})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	got, err := s.ListTournaments(context.Background())
	if err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if got[0].LocationCity != tournament.UnspecifiedRegion {
		t.Errorf("LocationCity = %q, want %q", got[0].LocationCity, tournament.UnspecifiedRegion)
	}
}

func TestFetchDetail_NoScheduleRows(t *testing.T) {
	page := `<html><body>
<div class="description">동호인 복식 대회</div>
<p>접수기간: 2026.04.01 ~ 2026.04.20</p>
<p>대회일 2026-05-10</p>
<p>참가비: 40,000원</p>
</body></html>`
	srv := newTestServer(t, pages{"/openGame/9": page})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	detail, err := s.FetchDetail(context.Background(), srv.URL+"/openGame/9")
	if err != nil {
		t.Fatalf("FetchDetail() error = %v", err)
	}

	if detail.Description != "동호인 복식 대회" {
		t.Errorf("Description = %q", detail.Description)
	}
	if detail.RegistrationStart.String() != "2026-04-01" || detail.RegistrationEnd.String() != "2026-04-20" {
		t.Errorf("registration = %s ~ %s", detail.RegistrationStart, detail.RegistrationEnd)
	}
	if detail.Fee != 40000 {
		t.Errorf("Fee = %d, want 40000", detail.Fee)
	}
	if len(detail.Divisions) != 1 {
		t.Fatalf("got %d divisions, want 1", len(detail.Divisions))
	}
	d := detail.Divisions[0]
	// The first full date on the page is the registration start.
	if d.DateStart.String() != "2026-04-01" {
		t.Errorf("DateStart = %s, want first page date", d.DateStart)
	}
	if d.Name != tournament.DefaultDivisionName || d.Fee != 40000 || d.Status != tournament.StatusRecruiting {
		t.Errorf("division = %+v", d)
	}
}

func TestFetchDetail_NoDatesAtAll(t *testing.T) {
	srv := newTestServer(t, pages{"/openGame/3": `<html><body><p>준비 중</p></body></html>`})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 23, 30, 0, 0, kst))

	detail, err := s.FetchDetail(context.Background(), srv.URL+"/openGame/3")
	if err != nil {
		t.Fatalf("FetchDetail() error = %v", err)
	}
	if got := detail.Divisions[0].DateStart.String(); got != "2026-02-01" {
		t.Errorf("DateStart = %s, want today 2026-02-01", got)
	}
}

func TestFetchDetail_ScheduleRows(t *testing.T) {
	page := `<html><body>
<p>접수기간 2026-12-01 ~ 2026-12-31</p>
<p>참가비 30,000원</p>
<table>
  <tr><td>접수</td><td>온라인</td></tr>
  <tr><td>01.10(토)</td><td>신인부</td><td>08:30</td><td></td></tr>
  <tr><td>01.11(일)</td><td></td><td>오전</td><td>무료</td></tr>
  <tr><td>2027.01.17</td><td>국화부</td><td>10:00</td><td>60,000원</td></tr>
  <tr><td>01.12</td></tr>
</table>
</body></html>`
	srv := newTestServer(t, pages{"/openGame/5": page})
	s := newTestScraper(srv, time.Date(2026, 12, 20, 9, 0, 0, 0, kst))

	detail, err := s.FetchDetail(context.Background(), srv.URL+"/openGame/5")
	if err != nil {
		t.Fatalf("FetchDetail() error = %v", err)
	}

	want := []struct {
		name string
		date string
		time string
		fee  int
	}{
		{"신인부", "2027-01-10", "08:30", 30000},
		{"일반부", "2027-01-11", "", 30000},
		{"국화부", "2027-01-17", "10:00", 60000},
	}
	if len(detail.Divisions) != len(want) {
		t.Fatalf("got %d divisions, want %d: %+v", len(detail.Divisions), len(want), detail.Divisions)
	}
	for i, w := range want {
		d := detail.Divisions[i]
		if d.Name != w.name || d.DateStart.String() != w.date || d.TimeStart != w.time || d.Fee != w.fee {
			t.Errorf("division[%d] = {%s %s %q %d}, want %+v", i, d.Name, d.DateStart, d.TimeStart, d.Fee, w)
		}
		if d.Status != tournament.StatusRecruiting {
			t.Errorf("division[%d].Status = %q, want recruiting", i, d.Status)
		}
	}
}

func TestFetchDetail_UpcomingRegistration(t *testing.T) {
	page := `<p>접수기간 2026.03.01 ~ 2026.03.10</p>
<table><tr><td>03.21</td><td>오픈부</td></tr></table>`
	srv := newTestServer(t, pages{"/openGame/8": page})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	detail, err := s.FetchDetail(context.Background(), srv.URL+"/openGame/8")
	if err != nil {
		t.Fatalf("FetchDetail() error = %v", err)
	}
	if got := detail.Divisions[0].Status; got != tournament.StatusUpcoming {
		t.Errorf("Status = %q, want upcoming", got)
	}
}

func TestFetchDetail_EUCKR(t *testing.T) {
	page := `<html><body><div class="address">대구 수성구</div>
<table><tr><td>03.07(토)</td><td>개나리부</td><td>09:00</td><td>54,000원</td></tr></table></body></html>`
	encoded, err := korean.EUCKR.NewEncoder().String(page)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=euc-kr")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	detail, err := s.FetchDetail(context.Background(), srv.URL+"/openGame/1")
	if err != nil {
		t.Fatalf("FetchDetail() error = %v", err)
	}
	if detail.LocationDetail != "대구 수성구" {
		t.Errorf("LocationDetail = %q", detail.LocationDetail)
	}
	if detail.Divisions[0].Name != "개나리부" || detail.Divisions[0].Fee != 54000 {
		t.Errorf("division = %+v", detail.Divisions[0])
	}
}

func TestFetchDetail_Failure(t *testing.T) {
	srv := newTestServer(t, pages{})
	s := newTestScraper(srv, time.Now())

	detail, err := s.FetchDetail(context.Background(), srv.URL+"/openGame/404")
	if err == nil {
		t.Fatal("FetchDetail() should fail on 404")
	}
	if detail == nil || len(detail.Divisions) != 0 {
		t.Errorf("detail = %+v, want empty non-nil", detail)
	}
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	s := New(WithHTTPClient(srv.Client()), WithListURL(srv.URL), WithUserAgent("test-agent/1.0"))
	if _, err := s.ListTournaments(context.Background()); err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestListTournaments_ContextCancelled(t *testing.T) {
	srv := newTestServer(t, pages{"/openList": listPage, "/openGame/101": detailPage})
	s := newTestScraper(srv, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.ListTournaments(ctx); err == nil {
		t.Fatal("ListTournaments() should fail on a cancelled context")
	}
}

func TestResolve(t *testing.T) {
	s := New(WithBaseURL("https://kato.kr"))
	tests := []struct {
		ref  string
		want string
	}{
		{"/openGame/12", "https://kato.kr/openGame/12"},
		{"upload/poster.png", "https://kato.kr/upload/poster.png"},
		{"https://cdn.example.com/poster.png", "https://cdn.example.com/poster.png"},
	}
	for _, tt := range tests {
		if got := s.resolve(tt.ref); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestParseList_LinkMatching(t *testing.T) {
	srv := newTestServer(t, pages{"/openList": `
<a class="content-title" href="https://kato.kr/openGame/44?tab=info">강원 오픈</a>
<a href="/notice/1">공지</a>
<div class="date">2026.06.06 ~ 2026.06.07</div>`})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	doc, err := s.fetch(context.Background(), srv.URL+"/openList")
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	items := s.parseList(doc)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if !strings.HasSuffix(items[0].link, "/openGame/44") {
		t.Errorf("link = %q", items[0].link)
	}
	if items[0].start.String() != "2026-06-06" || items[0].end.String() != "2026-06-07" {
		t.Errorf("dates = %s ~ %s", items[0].start, items[0].end)
	}
}

func TestParseList_IgnoresOtherDetailLinks(t *testing.T) {
	srv := newTestServer(t, pages{"/openList": `
<aside><a href="/openGame/999">인기 대회</a></aside>
<a class="content-title" href="/openGame/1">서울 오픈</a>
<div class="date">2026.04.04</div>
<a href="/openGame/1">신청하기</a>
<a class="content-title" href="/openGame/2">부산 오픈</a>
<div class="date">2026.04.18</div>`})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	doc, err := s.fetch(context.Background(), srv.URL+"/openList")
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	items := s.parseList(doc)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	want := map[string]string{"서울 오픈": "/openGame/1", "부산 오픈": "/openGame/2"}
	for _, item := range items {
		if !strings.HasSuffix(item.link, want[item.title]) {
			t.Errorf("%s link = %q, want suffix %q", item.title, item.link, want[item.title])
		}
	}
}

func TestParseList_TitleWithoutLinkScansPage(t *testing.T) {
	srv := newTestServer(t, pages{"/openList": `
<div class="card"><span><a class="content-title">제주 오픈</a></span>
<div class="date">2026.05.02</div>
<a class="more" href="/openGame/77">자세히</a></div>`})
	s := newTestScraper(srv, time.Date(2026, 2, 1, 0, 0, 0, 0, kst))

	doc, err := s.fetch(context.Background(), srv.URL+"/openList")
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	items := s.parseList(doc)
	if len(items) != 1 || !strings.HasSuffix(items[0].link, "/openGame/77") {
		t.Fatalf("items = %+v", items)
	}
}

func TestListTournaments_EventSpanningNewYear(t *testing.T) {
	list := `<a class="content-title" href="/openGame/301">2025 제주 송년 오픈</a>
<div class="date">2025.12.27 ~ 2026.01.03</div>`
	detail := `<table>
<tr><td>12.27(토)</td><td>개나리부</td><td>09:00</td><td>50,000원</td></tr>
<tr><td>01.03(토)</td><td>국화부</td><td>09:00</td><td>50,000원</td></tr>
</table>`
	srv := newTestServer(t, pages{"/openList": list, "/openGame/301": detail})
	s := newTestScraper(srv, time.Date(2025, 12, 1, 10, 0, 0, 0, kst))

	got, err := s.ListTournaments(context.Background())
	if err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if len(got) != 1 || len(got[0].Divisions) != 2 {
		t.Fatalf("got %+v", got)
	}

	tests := []struct {
		name string
		want string
	}{
		{"개나리부", "2025-12-27"},
		{"국화부", "2026-01-03"},
	}
	for i, tt := range tests {
		d := got[0].Divisions[i]
		if d.Name != tt.name || d.DateStart.String() != tt.want {
			t.Errorf("division %d = %s on %s, want %s on %s", i, d.Name, d.DateStart, tt.name, tt.want)
		}
		if d.Status != tournament.StatusRecruiting {
			t.Errorf("%s status = %q, want recruiting", d.Name, d.Status)
		}
	}
	if earliest := got[0].EarliestDate().String(); earliest != "2025-12-27" {
		t.Errorf("EarliestDate() = %s, want 2025-12-27", earliest)
	}
}
