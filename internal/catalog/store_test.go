package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"tapevault/internal/catalog"
	"tapevault/internal/media"
	"tapevault/internal/testsupport"
)

func newAsset(fingerprint, tapeNumber string) *media.Asset {
	asset := &media.Asset{
		ID:          uuid.NewString(),
		Kind:        media.KindVideo,
		SourceKind:  media.SourceUserUpload,
		Fingerprint: fingerprint,
		ByteSize:    128,
		StorageKey:  fingerprint[:2] + "/" + fingerprint,
		MIME:        "video/mp4",
		Visibility:  media.VisibilityFamily,
		Status:      media.StatusProcessing,
	}
	if tapeNumber != "" {
		asset.SourceKind = media.SourceVideoTape
		asset.TapeNumber = tapeNumber
	}
	return asset
}

func TestInsertAndGetAsset(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	asset := newAsset("aa11223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	asset.Title = "birthday"
	if err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}

	got, err := store.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if got == nil {
		t.Fatal("asset not found")
	}
	if got.Title != "birthday" || got.Status != media.StatusProcessing {
		t.Fatalf("unexpected asset: %+v", got)
	}
}

func TestInsertRejectsNonProcessingStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	asset := newAsset("bb11223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	asset.Status = media.StatusReady
	if err := store.InsertAsset(context.Background(), asset); err == nil {
		t.Fatal("expected error for non-processing insert")
	}
}

func TestTransitionGuards(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	asset := newAsset("cc11223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	if err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}

	if err := store.MarkReady(ctx, asset.ID); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	// Terminal states never revert.
	if err := store.MarkFailed(ctx, asset.ID, "late failure"); err == nil {
		t.Fatal("expected error transitioning a ready asset")
	}

	got, err := store.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if got.Status != media.StatusReady {
		t.Fatalf("status = %s, want ready", got.Status)
	}
}

func TestMarkFailedRecordsReason(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	asset := newAsset("dd11223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	if err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	if err := store.MarkFailed(ctx, asset.ID, "blob write failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := store.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if got.Status != media.StatusFailed || got.ErrorMessage != "blob write failed" {
		t.Fatalf("unexpected failed asset: status=%s message=%q", got.Status, got.ErrorMessage)
	}
}

func TestFailedRowFreesUniqueKeys(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	fingerprint := "cc11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	first := newAsset(fingerprint, "TAPE-9")
	if err := store.InsertAsset(ctx, first); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	if err := store.MarkFailed(ctx, first.ID, "blob write failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// The failed row keeps neither the fingerprint nor the tape number, so
	// a retry of the same payload inserts cleanly.
	retry := newAsset(fingerprint, "TAPE-9")
	if err := store.InsertAsset(ctx, retry); err != nil {
		t.Fatalf("InsertAsset after failure: %v", err)
	}
	if err := store.MarkReady(ctx, retry.ID); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	byFP, err := store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		t.Fatalf("FindByFingerprint: %v", err)
	}
	if byFP == nil || byFP.ID != retry.ID {
		t.Fatalf("FindByFingerprint returned %+v, want the retry row", byFP)
	}
}

func TestSoftDeleteFreesUniqueKeys(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	fingerprint := "ee11223344556677889900aabbccddeeff00112233445566778899aabbccddee"
	first := newAsset(fingerprint, "TAPE-7")
	if err := store.InsertAsset(ctx, first); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	if err := store.MarkReady(ctx, first.ID); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	// Same fingerprint and tape number collide while the first is live.
	duplicate := newAsset(fingerprint, "TAPE-7")
	if err := store.InsertAsset(ctx, duplicate); err == nil {
		t.Fatal("expected unique index violation")
	}

	deleted, err := store.SoftDelete(ctx, first.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if deleted == nil || deleted.Fingerprint != fingerprint {
		t.Fatalf("unexpected soft delete result: %+v", deleted)
	}

	// Partial indexes stop covering the deleted row, so reuse succeeds.
	reuse := newAsset(fingerprint, "TAPE-7")
	if err := store.InsertAsset(ctx, reuse); err != nil {
		t.Fatalf("InsertAsset after soft delete: %v", err)
	}

	// Deleted rows stay fetchable by id but vanish from key lookups.
	got, err := store.GetAsset(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if !got.IsDeleted() {
		t.Fatal("expected deleted asset")
	}
	byFP, err := store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		t.Fatalf("FindByFingerprint: %v", err)
	}
	if byFP == nil || byFP.ID != reuse.ID {
		t.Fatalf("FindByFingerprint returned %+v, want the reuse row", byFP)
	}
}

func TestSoftDeleteTwiceReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	asset := newAsset("ff11223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	if err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	if _, err := store.SoftDelete(ctx, asset.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	again, err := store.SoftDelete(ctx, asset.ID)
	if err != nil {
		t.Fatalf("SoftDelete again: %v", err)
	}
	if again != nil {
		t.Fatal("second soft delete should report nothing to do")
	}
}

func TestListAssetsFilters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	tape := newAsset("0011223344556677889900aabbccddeeff00112233445566778899aabbccddee", "TAPE-1")
	captured := time.Date(1994, 6, 1, 0, 0, 0, 0, time.UTC)
	tape.CapturedAt = &captured
	upload := newAsset("1111223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	for _, asset := range []*media.Asset{tape, upload} {
		if err := store.InsertAsset(ctx, asset); err != nil {
			t.Fatalf("InsertAsset: %v", err)
		}
	}

	bySource, err := store.ListAssets(ctx, catalog.AssetFilter{SourceKind: media.SourceVideoTape})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(bySource) != 1 || bySource[0].ID != tape.ID {
		t.Fatalf("source filter returned %d rows", len(bySource))
	}

	byTape, err := store.ListAssets(ctx, catalog.AssetFilter{TapeNumber: "TAPE-1"})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(byTape) != 1 || byTape[0].ID != tape.ID {
		t.Fatalf("tape filter returned %d rows", len(byTape))
	}

	from := time.Date(1994, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(1994, 12, 31, 0, 0, 0, 0, time.UTC)
	byDate, err := store.ListAssets(ctx, catalog.AssetFilter{DateFrom: &from, DateTo: &to})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(byDate) != 1 || byDate[0].ID != tape.ID {
		t.Fatalf("date filter returned %d rows", len(byDate))
	}
}

func TestListAssetsByTag(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	tagged := newAsset("2211223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	plain := newAsset("3311223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	for _, asset := range []*media.Asset{tagged, plain} {
		if err := store.InsertAsset(ctx, asset); err != nil {
			t.Fatalf("InsertAsset: %v", err)
		}
	}

	tag, err := store.EnsureTag(ctx, "Holidays")
	if err != nil {
		t.Fatalf("EnsureTag: %v", err)
	}
	if tag.Name != "holidays" {
		t.Fatalf("tag name = %q, want lowercased", tag.Name)
	}
	if err := store.AttachTag(ctx, tagged.ID, tag.ID, "user-1"); err != nil {
		t.Fatalf("AttachTag: %v", err)
	}

	assets, err := store.ListAssets(ctx, catalog.AssetFilter{TagID: tag.ID})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != tagged.ID {
		t.Fatalf("tag filter returned %d rows", len(assets))
	}

	names, err := store.AssetTags(ctx, tagged.ID)
	if err != nil {
		t.Fatalf("AssetTags: %v", err)
	}
	if len(names) != 1 || names[0] != "holidays" {
		t.Fatalf("AssetTags = %v", names)
	}
}

func TestCommittedEntriesCoverOnlyReadyRows(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	ready := newAsset("4411223344556677889900aabbccddeeff00112233445566778899aabbccddee", "TAPE-9")
	processing := newAsset("5511223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	for _, asset := range []*media.Asset{ready, processing} {
		if err := store.InsertAsset(ctx, asset); err != nil {
			t.Fatalf("InsertAsset: %v", err)
		}
	}
	if err := store.MarkReady(ctx, ready.ID); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	fingerprints, err := store.CommittedFingerprints(ctx)
	if err != nil {
		t.Fatalf("CommittedFingerprints: %v", err)
	}
	if len(fingerprints) != 1 || fingerprints[0].Identity != ready.ID {
		t.Fatalf("CommittedFingerprints = %+v", fingerprints)
	}

	tapes, err := store.CommittedTapeNumbers(ctx)
	if err != nil {
		t.Fatalf("CommittedTapeNumbers: %v", err)
	}
	if len(tapes) != 1 || tapes[0].Key != "TAPE-9" {
		t.Fatalf("CommittedTapeNumbers = %+v", tapes)
	}
}

func TestUsersRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	user := testsupport.NewUser(t, store, "gran", "shoebox-full-of-tapes", catalog.RoleMember)

	got, err := store.GetUserByUsername(ctx, "gran")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got == nil || got.ID != user.ID || !got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}

	missing, err := store.GetUserByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown username")
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	asset := newAsset("6611223344556677889900aabbccddeeff00112233445566778899aabbccddee", "")
	if err := store.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	commenter := testsupport.NewUser(t, store, "uncle", "betamax4ever", catalog.RoleMember)

	if _, err := store.AddComment(ctx, asset.ID, commenter.ID, "  "); err == nil {
		t.Fatal("expected error for empty comment body")
	}
	if _, err := store.AddComment(ctx, asset.ID, commenter.ID, "who is that on the left?"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	comments, err := store.Comments(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Body != "who is that on the left?" {
		t.Fatalf("Comments = %+v", comments)
	}
}
