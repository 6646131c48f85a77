// Package metrics turns normalized delivery records into aggregate
// statistics: the four DORA key metrics (lead time for changes, deployment
// frequency, change failure rate, mean time to recovery) plus cycle-time,
// coding-time, rework-rate, review-efficiency and pull-request-size
// indicators.
//
// Every calculator is a pure function over already-fetched, immutable
// records: no I/O, no shared state, no mutation of inputs. Missing evidence
// (no deployments, no reviews, no closed incidents) yields nil result
// fields, never an error. Ratios are percentages on the 0 to 100 scale and
// every reported figure is rounded to one decimal place.
package metrics
