// Package strata builds typed configuration from ordered, partial sources.
//
// Quick Start:
//
//	type Config struct {
//	    Host     string `conf:"default:localhost"`
//	    Username string
//	    Password string `conf:"secret"`
//	}
//
//	b, _ := strata.New[Config]()
//	b.WithSource(sourcefile.New("config.yaml", sourcefile.Options{})).
//	    WithSource(sourceenv.New(sourceenv.Options{Prefix: "APP_", Secure: true}))
//
//	cfg, err := b.Load(context.Background())
//
// Sources are applied in order (later override earlier). Secret-tagged
// fields accept values only from sources marked secure. Defaults apply
// only to fields no source ever touched.
//
// Tag directives: name:key, prefix:key, default:val, secret
//
// See example_test.go and README.md for detailed usage.
package strata
