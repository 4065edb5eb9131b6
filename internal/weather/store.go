package weather

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveSeries(set SeriesSet)
	GetSeries(key SeriesKey) (SeriesSet, error)
	Keys() []SeriesKey
	SaveRun(run RunSummary)
	Runs() []RunSummary
}
