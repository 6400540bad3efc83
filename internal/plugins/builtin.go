package plugins

import (
	amexplugin "github.com/ArionMiles/budgify/pkg/plugins/loaders/amex"
	canadiantireplugin "github.com/ArionMiles/budgify/pkg/plugins/loaders/canadiantire"
	hometrustplugin "github.com/ArionMiles/budgify/pkg/plugins/loaders/hometrust"
	tdvisaplugin "github.com/ArionMiles/budgify/pkg/plugins/loaders/tdvisa"
	csvplugin "github.com/ArionMiles/budgify/pkg/plugins/writers/csv"
	jsonplugin "github.com/ArionMiles/budgify/pkg/plugins/writers/json"
	postgresplugin "github.com/ArionMiles/budgify/pkg/plugins/writers/postgres"
	sheetsplugin "github.com/ArionMiles/budgify/pkg/plugins/writers/sheets"
	sqliteplugin "github.com/ArionMiles/budgify/pkg/plugins/writers/sqlite"
	xlsxplugin "github.com/ArionMiles/budgify/pkg/plugins/writers/xlsx"
)

// Builtin returns a registry holding every loader and sink shipped with
// budgify. Loaders are registered in file name matching order.
func Builtin() *Registry {
	r := NewRegistry()

	loaders := []LoaderPlugin{
		&tdvisaplugin.Plugin{},
		&hometrustplugin.Plugin{},
		&amexplugin.Plugin{},
		&canadiantireplugin.Plugin{},
	}
	for _, p := range loaders {
		if err := r.RegisterLoader(p); err != nil {
			panic(err)
		}
	}

	sinks := []SinkPlugin{
		&csvplugin.Plugin{},
		&jsonplugin.Plugin{},
		&xlsxplugin.Plugin{},
		&sheetsplugin.Plugin{},
		&sqliteplugin.Plugin{},
		&postgresplugin.Plugin{},
	}
	for _, p := range sinks {
		if err := r.RegisterSink(p); err != nil {
			panic(err)
		}
	}
	return r
}
