package strata

import "context"

// mapSource is an in-memory Source for tests.
type mapSource struct {
	name   string
	secure bool
	data   map[string]any
	err    error
}

func (m *mapSource) Load(ctx context.Context) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m *mapSource) Name() string {
	if m.name == "" {
		return "test"
	}
	return m.name
}

func (m *mapSource) Secure() bool { return m.secure }

// insecure builds a test source not trusted with secrets.
func insecure(data map[string]any) *mapSource {
	return &mapSource{name: "insecure", data: data}
}

// secure builds a test source trusted with secrets.
func secure(data map[string]any) *mapSource {
	return &mapSource{name: "secure", secure: true, data: data}
}
