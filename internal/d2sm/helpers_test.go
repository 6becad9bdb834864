package d2sm_test

import (
	"fmt"
	"testing"

	"d2sm/internal/d2sm"
	"d2sm/internal/database"
	"d2sm/internal/testutil"
)

type testEnv struct {
	svc   *d2sm.Service
	db    *database.SQLiteDatabase
	fsmgr *testutil.MockFilesystemManager
	vault d2sm.Vault
	clock *testutil.StubClock
}

func newTestEnv(t *testing.T, encryptor d2sm.Encryptor) *testEnv {
	t.Helper()
	env := &testEnv{
		db:    testutil.NewTestDatabase(t),
		fsmgr: testutil.NewMockFilesystemManager(),
		vault: testutil.NewTestVault(),
		clock: testutil.FixedClock(),
	}
	env.svc = d2sm.NewService(env.db, env.vault, env.fsmgr, encryptor, nil, env.clock, testutil.NewStubIDGenerator())
	return env
}

// characterJSON is a minimal valid interchange document.
func characterJSON(name string, level int, lastPlayed uint32) []byte {
	return []byte(fmt.Sprintf(`{
  "header": {
    "identifier": "aa55aa55",
    "name": %q,
    "level": %d,
    "class": "Sorceress",
    "status": {"hardcore": false, "died": true, "expansion": true, "ladder": false},
    "created": 1650000000,
    "last_played": %d
  },
  "attributes": {"strength": 35, "level": %d},
  "items": [],
  "corpse_items": [],
  "merc_items": []
}`, name, level, lastPlayed, level))
}
