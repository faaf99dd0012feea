package domain

import "fmt"

// Dataset names served by the data provider. The archive member for a dataset
// is always "<name>.json".
const (
	DatasetTransactions     = "transactions"
	DatasetTxnInOutAddrFlat = "txn_inout_abbr_flat"

	CollectorTxnAbbr          = "btc-txn-abbr"
	CollectorTxnInOutAddrFlat = "btc-txn-inout-addr-flat"
)

// Dataset describes one file loaded every cycle and where its events go.
type Dataset struct {
	Name      string
	Collector string
	// Primary datasets gate watermark advancement; secondary ones are best-effort.
	Primary bool
}

// MemberName returns the archive member holding the dataset.
func (d Dataset) MemberName() string {
	return d.Name + ".json"
}

// Route builds the routing metadata for the dataset's events.
func (d Dataset) Route(index string) RouteInfo {
	return RouteInfo{
		Index:      index,
		SourceType: SourceType(d.Collector),
	}
}

// DefaultDatasets is the ordered list processed by each poll cycle.
var DefaultDatasets = []Dataset{
	{Name: DatasetTransactions, Collector: CollectorTxnAbbr, Primary: true},
	{Name: DatasetTxnInOutAddrFlat, Collector: CollectorTxnInOutAddrFlat},
}

// collectorSourceType maps a collector to the sourcetype events are tagged with.
var collectorSourceType = map[string]string{
	CollectorTxnAbbr:          "st-btc-txn-abbr",
	CollectorTxnInOutAddrFlat: "st-btc-txn-inout-addr-flat",
}

// SourceType returns the sourcetype for a collector. An unknown collector is a
// programming error and panics.
func SourceType(collector string) string {
	st, ok := collectorSourceType[collector]
	if !ok {
		panic(fmt.Sprintf("domain: unknown collector %q", collector))
	}
	return st
}
