// Package crawler downloads historical market data from the Yahoo
// Finance chart API and writes one raw CSV file per symbol.
//
// Downloads are rate limited and retried with exponential backoff so a
// throttling burst from the provider does not fail the stage. Null
// quote entries (halted or partially reported days) are dropped before
// anything reaches disk.
package crawler
