// Package scraper fetches the KATO open-tournament listing and its detail
// pages and turns them into tournament.CrawledTournament records.
//
// The list page yields titles, event date ranges and detail links. Each
// detail page is then read for the venue address, poster, description,
// registration window, default entry fee and the schedule table, one
// division per schedule row. Detail extraction is tolerant: a missing field
// is left empty and a page that cannot be fetched degrades to a single
// default division built from the list data.
//
// Pages are decoded according to their declared charset, so EUC-KR pages
// parse the same as UTF-8 ones, and all extracted text is NFC-normalized.
package scraper
