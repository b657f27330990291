// Package testutil builds synthetic potree datasets in memory.
//
// This package is intended for use in tests only.
//
//	ds := testutil.NewDataset(testutil.DatasetOptions{})
//	ds.AddNode("", 50000)
//	ds.AddNode("0", 40000)
//	ds.Build()
//	b, err := ds.Fetch(ctx, ds.URL("cloud.js"))
package testutil
