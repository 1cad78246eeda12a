// Package tournament provides the crawled tournament model and the
// normalization rules applied to scraped text.
//
// A CrawledTournament is one advertised event with one or more divisions
// (skill brackets, each with its own date, fee and capacity). The package
// parses the free-text fields found on tournament sites (fee strings, dotted
// date ranges, month/day schedule cells, region names) into typed values and
// infers a recruitment status from the registration window and event date.
//
// Dates are calendar days (see Date) and all status comparisons are made
// against "today" in the site's time zone, truncated to midnight.
package tournament
