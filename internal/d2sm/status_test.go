package d2sm_test

import (
	"context"
	"testing"

	"d2sm/internal/errkind"
	"d2sm/internal/testutil"
)

func TestService_GetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports archived, modified and new saves", func(t *testing.T) {
		env := newTestEnv(t, nil)
		addSaveDir(env)

		if _, err := env.svc.ArchiveSaves(ctx, "/saves/Alina.d2s", false, false); err != nil {
			t.Fatalf("ArchiveSaves() error = %v", err)
		}
		// Level up after the archive.
		hdr := testutil.AlinaHeader()
		hdr.Level = 82
		env.fsmgr.AddFile("/saves/Alina.d2s", testutil.BuildCharacterSave(hdr))
		if _, err := env.svc.ArchiveSaves(ctx, "/saves/SharedStashSoftCoreV2.d2i", false, false); err != nil {
			t.Fatalf("ArchiveSaves() error = %v", err)
		}

		statuses, err := env.svc.GetStatus(ctx, "/saves", true)
		if err != nil {
			t.Fatalf("GetStatus() error = %v", err)
		}

		byPath := make(map[string]bool)
		for _, st := range statuses {
			byPath[st.RelativePath] = true
			switch st.RelativePath {
			case "Alina.d2s":
				if st.IsArchived || !st.IsModifiedSince {
					t.Errorf("Alina.d2s status = %+v, want modified since archive", st)
				}
			case "SharedStashSoftCoreV2.d2i":
				if !st.IsArchived || st.IsModifiedSince {
					t.Errorf("stash status = %+v, want archived", st)
				}
			case "backup/Old.d2s":
				if st.IsArchived || st.IsModifiedSince || st.Err != nil {
					t.Errorf("Old.d2s status = %+v, want never archived", st)
				}
			case "Broken.d2s":
				if !errkind.Is(st.Err, errkind.InvalidFormat) {
					t.Errorf("Broken.d2s error = %v, want invalid format", st.Err)
				}
				if st.Checksum != "" {
					t.Errorf("Broken.d2s checksum = %q, want empty", st.Checksum)
				}
			default:
				t.Errorf("unexpected status for %s", st.RelativePath)
			}
		}
		for _, want := range []string{"Alina.d2s", "SharedStashSoftCoreV2.d2i", "backup/Old.d2s", "Broken.d2s"} {
			if !byPath[want] {
				t.Errorf("no status for %s", want)
			}
		}
	})

	t.Run("single file is relative to its directory", func(t *testing.T) {
		env := newTestEnv(t, nil)
		character, _ := addSaveDir(env)

		statuses, err := env.svc.GetStatus(ctx, "/saves/Alina.d2s", false)
		if err != nil {
			t.Fatalf("GetStatus() error = %v", err)
		}
		if len(statuses) != 1 {
			t.Fatalf("got %d statuses, want 1", len(statuses))
		}
		if statuses[0].RelativePath != "Alina.d2s" || statuses[0].Checksum != testutil.SHA256Hex(character) {
			t.Errorf("status = %+v", statuses[0])
		}
	})

	t.Run("missing path", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if _, err := env.svc.GetStatus(ctx, "/nowhere", false); err == nil {
			t.Fatal("GetStatus() error = nil, want error")
		}
	})
}
