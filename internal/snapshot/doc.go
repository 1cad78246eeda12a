// Package snapshot provides JSON-based persistence for crawl results.
//
// Every scrape writes a timestamped file (crawl_YYYYMMDDTHHMMSSZ.json) and
// rewrites latest.json in the data directory, so the last crawl can be
// inspected or re-imported without hitting the site again. The default
// location is ~/.local/share/chida-crawler/.
package snapshot
