package entry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateFlatAccount(t *testing.T) {

	assert := assert.New(t)

	for _, minor := range []int{0, 1} {
		e := Entry{Version: 1, MinorVersion: minor, Data: map[string]any{
			CONF_USERNAME: "user@example.com",
			CONF_PASSWORD: "secret",
		}}
		migrated, changed, err := Migrate(e)
		require.NoError(t, err)
		assert.True(changed)
		assert.Equal(1, migrated.Version)
		assert.Equal(2, migrated.MinorVersion)

		data, err := migrated.Decode()
		require.NoError(t, err)
		assert.Equal(UserAccount{
			Username:         "user@example.com",
			Password:         "secret",
			PrefixDeviceName: true,
			CustomDeviceId:   false,
		}, data.UserAccount)
		assert.Nil(data.EntryIds)
	}
}

func TestMigrateCurrentIsNoop(t *testing.T) {

	e := New(Data{UserAccount: UserAccount{Username: "u", Password: "p"}})
	migrated, changed, err := Migrate(e)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, e, migrated)
}

func TestMigrateFailures(t *testing.T) {

	_, _, err := Migrate(Entry{Version: 2, MinorVersion: 0, Data: map[string]any{}})
	assert.ErrorIs(t, err, ErrFutureVersion)

	_, _, err = Migrate(Entry{Version: 0, MinorVersion: 3, Data: map[string]any{}})
	assert.ErrorIs(t, err, ErrUnknownVersion)

	_, _, err = Migrate(Entry{Version: 1, MinorVersion: 1, Data: map[string]any{CONF_PASSWORD: "p"}})
	assert.ErrorIs(t, err, ErrMalformedEntry)
}

func TestDecode(t *testing.T) {

	e := New(Data{
		UserAccount: UserAccount{Username: "u", Password: "p", CustomDeviceId: true},
		EntryIds:    map[string]string{"uuid-1": "bedroom"},
	})
	assert.Equal(t, "BlueAir u", e.Title)
	assert.Equal(t, "u", e.UniqueId)

	data, err := e.Decode()
	require.NoError(t, err)
	assert.Equal(t, "bedroom", data.CustomEntityId("uuid-1"))
	assert.Equal(t, "", data.CustomEntityId("uuid-2"))

	_, err = Entry{Version: 1, MinorVersion: 1, Data: e.Data}.Decode()
	assert.ErrorIs(t, err, ErrMalformedEntry)
}

func TestFileStore(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "entry.yaml")

	store, err := NewStore(config.EntryConfig{Backend: config.ENTRY_BACKEND_FILE, Path: path})
	require.NoError(t, err)

	_, err = store.Load(ctx)
	assert.ErrorIs(err, ErrEntryNotFound)

	e := New(Data{
		UserAccount: UserAccount{Username: "u", Password: "p", PrefixDeviceName: true},
		EntryIds:    map[string]string{"uuid-1": "bedroom"},
	})
	require.NoError(t, store.Save(ctx, e))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	data, err := loaded.Decode()
	require.NoError(t, err)
	assert.True(data.UserAccount.PrefixDeviceName)
	assert.Equal("bedroom", data.CustomEntityId("uuid-1"))
}

func TestLoadCurrentSavesMigration(t *testing.T) {

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "entry.yaml")
	legacy := "version: 1\nminor_version: 1\ndata:\n  username: user@example.com\n  password: secret\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	store := NewFileStore(path)
	data, err := LoadCurrent(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", data.UserAccount.Username)
	assert.True(t, data.UserAccount.PrefixDeviceName)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.MinorVersion)
}

func TestLoadCurrentFutureVersion(t *testing.T) {

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "entry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 3\nminor_version: 0\ndata: {}\n"), 0o600))

	_, err := LoadCurrent(ctx, NewFileStore(path))
	assert.ErrorIs(t, err, ErrFutureVersion)
}

func TestParseEndpoint(t *testing.T) {

	host, secure, err := parseEndpoint("http://minio:9000")
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)

	host, secure, err = parseEndpoint("s3.amazonaws.com")
	require.NoError(t, err)
	assert.Equal(t, "s3.amazonaws.com", host)
	assert.True(t, secure)

	_, err = NewS3Store(config.S3Config{Endpoint: "minio:9000", Bucket: "b"})
	assert.Error(t, err, "credentials files are required")
}
