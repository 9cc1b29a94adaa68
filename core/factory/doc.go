// Package factory turns {type, conf} entries from the config file into
// pluggable modules such as metrics sinks. Packages register a Factory per
// type name at init time; the factory decodes its settings with Decode.
//
//	var sinks = factory.NewRegistry[metrics.MetricsSink]("metrics sink")
//	sinks.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL), nil
//	})
package factory
