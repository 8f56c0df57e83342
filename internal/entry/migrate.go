package entry

import "fmt"

type schemaVersion struct {
	version int
	minor   int
}

func (v schemaVersion) String() string {
	return fmt.Sprintf("%d.%d", v.version, v.minor)
}

type migration struct {
	to        schemaVersion
	transform func(data map[string]any) (map[string]any, error)
}

// migrations is keyed by the version an entry is read with.
var migrations = map[schemaVersion]migration{
	{1, 0}: {to: schemaVersion{1, 2}, transform: nestUserAccount},
	{1, 1}: {to: schemaVersion{1, 2}, transform: nestUserAccount},
}

// Migrate rewrites an entry into the current layout. The returned bool is
// true when the entry changed and should be saved back.
func Migrate(e Entry) (Entry, bool, error) {
	current := schemaVersion{VERSION, MINOR_VERSION}
	at := schemaVersion{e.Version, e.MinorVersion}
	changed := false
	for at != current {
		if at.version > VERSION {
			return e, false, fmt.Errorf("%w: %s", ErrFutureVersion, at)
		}
		m, ok := migrations[at]
		if !ok {
			return e, false, fmt.Errorf("%w: %s", ErrUnknownVersion, at)
		}
		data, err := m.transform(e.Data)
		if err != nil {
			return e, false, fmt.Errorf("migrate %s to %s: %w", at, m.to, err)
		}
		e.Data = data
		e.Version = m.to.version
		e.MinorVersion = m.to.minor
		at = m.to
		changed = true
	}
	return e, changed, nil
}

// nestUserAccount moves the flat credentials of entries older than 1.2 into
// the user account block, with the defaults of the time.
func nestUserAccount(data map[string]any) (map[string]any, error) {
	username, ok := data[CONF_USERNAME].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEntry, CONF_USERNAME)
	}
	password, ok := data[CONF_PASSWORD].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEntry, CONF_PASSWORD)
	}
	return map[string]any{
		DATA_USER_ACCOUNT: map[string]any{
			CONF_USERNAME:           username,
			CONF_PASSWORD:           password,
			CONF_PREFIX_DEVICE_NAME: true,
			CONF_CUSTOM_DEVICE_ID:   false,
		},
		DATA_ENTRY_ID: nil,
	}, nil
}
