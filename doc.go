// Package portfolio manages stock portfolios for a set of users: what they hold, what
// it is worth, and what it cost.
//
// The core functionalities include:
//   - Portfolios: a rigid portfolio holds a fixed list of stocks, a flexible portfolio
//     holds whatever its ledger of buy and sell transactions says.
//   - Ledger: a chronological record of transactions that never lets a position go
//     negative nor trades a stock before its listing date.
//   - Valuation: market value and cost basis on any date, priced with the latest
//     known price on or before that date.
//   - Performance: the value of a portfolio sampled over a period, scaled for a bar
//     chart.
//   - Dollar cost averaging: plans that buy weighted stocks at a fixed interval, all
//     recorded or none.
//   - Persistence: a folder per user holding a JSON user record and one CSV ledger
//     file per flexible portfolio.
//
// This package serves as the foundational logic for the `pcs` command-line
// tool. Market data comes from the market package.
package portfolio
