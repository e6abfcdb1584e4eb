package datasets

import (
	"math/rand"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/affectsai/ardt/ardterr"
)

// TestPreloadRunsOnce verifies that preload performs the expensive
// transform only once per working directory and signal set, that a marker
// covering a superset of the selected signals skips the transform, and
// that selecting a signal type the marker does not cover re-triggers it.
func TestPreloadRunsOnce(t *testing.T) {
	root := t.TempDir()

	s := newStubDataset(t, root, "StubDataset", 2, 2)
	if err := s.Preload(); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if err := s.Preload(); err != nil {
		t.Fatalf("second Preload failed: %v", err)
	}
	if s.preloads != 1 {
		t.Fatalf("expected 1 preload run, got %d", s.preloads)
	}

	// A fresh instance over the same working directory finds the marker.
	again := newStubDataset(t, root, "StubDataset", 2, 2)
	if err := again.Preload(); err != nil {
		t.Fatalf("Preload on fresh instance failed: %v", err)
	}
	if again.preloads != 0 {
		t.Fatalf("expected marker to skip preload, got %d runs", again.preloads)
	}

	// Selecting a signal type the marker does not cover re-triggers the
	// transform and rewrites the marker.
	wider := newStubDataset(t, root, "StubDataset", 2, 2)
	wider.signals = []string{"ECG", "EEG"}
	if err := wider.Preload(); err != nil {
		t.Fatalf("Preload with wider signal set failed: %v", err)
	}
	if wider.preloads != 1 {
		t.Fatalf("expected wider signal set to re-trigger preload, got %d runs", wider.preloads)
	}

	// A subset of the rewritten marker is covered again.
	narrow := newStubDataset(t, root, "StubDataset", 2, 2)
	if err := narrow.Preload(); err != nil {
		t.Fatalf("Preload on narrowed instance failed: %v", err)
	}
	if narrow.preloads != 0 {
		t.Fatalf("expected subset of marker to skip preload, got %d runs", narrow.preloads)
	}
}

// TestLoadTrialsKeepsStateOnFailure verifies that a failed reload leaves
// the previously loaded trial list installed.
func TestLoadTrialsKeepsStateOnFailure(t *testing.T) {
	s := newStubDataset(t, t.TempDir(), "StubDataset", 3, 2)
	mustLoad(t, s)
	if s.TrialCount() != 6 {
		t.Fatalf("expected 6 trials, got %d", s.TrialCount())
	}
	before := s.Trials()

	s.failLoad = true
	if err := s.LoadTrials(); err == nil {
		t.Fatal("expected LoadTrials to fail")
	}
	if s.TrialCount() != 6 {
		t.Fatalf("failed load corrupted trial list: got %d trials", s.TrialCount())
	}
	for i, trial := range s.Trials() {
		if trial != before[i] {
			t.Fatalf("failed load replaced trial %d", i)
		}
	}
}

// TestLoadTrialsFiltersConjunctively verifies that all filters must
// accept a trial for it to survive.
func TestLoadTrialsFiltersConjunctively(t *testing.T) {
	s := newStubDataset(t, t.TempDir(), "StubDataset", 4, 3)
	mustLoad(t, s, ParticipantsIn(1, 2), MediaIn(2))
	if s.TrialCount() != 2 {
		t.Fatalf("expected 2 trials after filtering, got %d", s.TrialCount())
	}
	for _, trial := range s.Trials() {
		if trial.NativeMediaID() != 1 {
			t.Fatalf("expected surviving media renumbered to 1, got %d", trial.NativeMediaID())
		}
	}
}

// TestLoadTrialsRenumbersAfterFilter verifies that filtered loads
// renumber surviving participant and media ids into dense 1-based
// sequences in first-encounter order, which downstream offset-based
// composition depends on.
func TestLoadTrialsRenumbersAfterFilter(t *testing.T) {
	s := newStubDataset(t, t.TempDir(), "StubDataset", 5, 4)
	mustLoad(t, s, ParticipantsIn(2, 4), MediaIn(1, 3))

	if s.TrialCount() != 4 {
		t.Fatalf("expected 4 trials, got %d", s.TrialCount())
	}
	if got := s.ParticipantIDs(); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected dense participant ids [1 2], got %v", got)
	}
	if got := s.MediaIDs(); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected dense media ids [1 2], got %v", got)
	}

	// First-encounter order: participant 2 precedes 4 in the source, so 2
	// becomes 1 and 4 becomes 2; likewise media 1 then 3.
	first := s.Trials()[0]
	if first.NativeParticipantID() != 1 || first.NativeMediaID() != 1 {
		t.Fatalf("expected first trial renumbered to participant 1 media 1, got %d/%d",
			first.NativeParticipantID(), first.NativeMediaID())
	}

	// An unfiltered reload restores the source numbering.
	mustLoad(t, s)
	if got := s.ParticipantIDs(); !slices.Equal(got, []int{1, 2, 3, 4, 5}) {
		t.Fatalf("expected source participant ids restored, got %v", got)
	}
}

// TestGetWorkingPathValidation verifies the context requirements for
// cache path derivation.
func TestGetWorkingPathValidation(t *testing.T) {
	root := t.TempDir()
	s := newStubDataset(t, root, "StubDataset", 2, 2)

	if _, err := s.GetWorkingPath(PathSpec{MediaID: 2}); !ardterr.IsKind(err, ardterr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for media without participant, got %v", err)
	}
	if _, err := s.GetWorkingPath(PathSpec{ParticipantID: 1, SignalType: "ECG"}); !ardterr.IsKind(err, ardterr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for signal without media, got %v", err)
	}
	if _, err := s.GetWorkingPath(PathSpec{ParticipantID: 1, MediaID: 2, SignalType: "EEG"}); !ardterr.IsKind(err, ardterr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for unselected signal type, got %v", err)
	}

	path, err := s.GetWorkingPath(PathSpec{ParticipantID: 1, MediaID: 2, SignalType: "ECG", Baseline: true})
	if err != nil {
		t.Fatalf("GetWorkingPath failed: %v", err)
	}
	want := filepath.Join(root, "StubDataset", "Participant_01", "Media_02", "ECG_baseline.gob")
	if path != want {
		t.Fatalf("expected path %s, got %s", want, path)
	}

	// Trial-scoped ids subtract the dataset offsets.
	s.SetParticipantOffset(100)
	s.SetMediaOffset(200)
	shifted, err := s.GetWorkingPath(PathSpec{TrialParticipantID: 101, TrialMediaID: 202, SignalType: "ECG"})
	if err != nil {
		t.Fatalf("GetWorkingPath with trial ids failed: %v", err)
	}
	if !strings.HasSuffix(shifted, filepath.Join("Participant_01", "Media_02", "ECG_stimuli.gob")) {
		t.Fatalf("expected trial ids mapped back to native coordinates, got %s", shifted)
	}

	unrooted := newStubDataset(t, "", "StubDataset", 1, 1)
	if _, err := unrooted.GetWorkingDir(); !ardterr.IsKind(err, ardterr.KindNotConfigured) {
		t.Fatalf("expected NotConfigured without a working root, got %v", err)
	}
}

// TestSignalMetadataMerge verifies the merge-on-set behavior and the
// NotConfigured failure for unregistered signal types.
func TestSignalMetadataMerge(t *testing.T) {
	s := newStubDataset(t, t.TempDir(), "StubDataset", 1, 1)

	if _, err := s.GetSignalMetadata("ECG"); !ardterr.IsKind(err, ardterr.KindNotConfigured) {
		t.Fatalf("expected NotConfigured for unregistered metadata, got %v", err)
	}

	s.SetSignalMetadata("ECG", SignalMetadata{SampleRate: 256})
	s.SetSignalMetadata("ECG", SignalMetadata{Channels: 2, Extra: map[string]string{"device": "shimmer"}})
	s.SetSignalMetadata("ECG", SignalMetadata{Extra: map[string]string{"units": "mV"}})

	md, err := s.GetSignalMetadata("ECG")
	if err != nil {
		t.Fatalf("GetSignalMetadata failed: %v", err)
	}
	if md.SampleRate != 256 || md.Channels != 2 {
		t.Fatalf("expected merged metadata 256Hz/2ch, got %+v", md)
	}
	if md.Extra["device"] != "shimmer" || md.Extra["units"] != "mV" {
		t.Fatalf("expected Extra keys to union, got %+v", md.Extra)
	}
}

// TestMediaNames verifies media name registration and the NotImplemented
// failure for unknown ids.
func TestMediaNames(t *testing.T) {
	s := newStubDataset(t, t.TempDir(), "StubDataset", 1, 1)
	s.SetMediaName(3, "First Film")

	name, err := s.GetMediaNameByID(3)
	if err != nil || name != "First Film" {
		t.Fatalf("expected First Film, got %q err %v", name, err)
	}
	if _, err := s.GetMediaNameByID(9); !ardterr.IsKind(err, ardterr.KindNotImplemented) {
		t.Fatalf("expected NotImplemented for unknown media id, got %v", err)
	}
}

// TestOffsetsShiftIDs verifies that trial ids and the dataset id sets
// shift with the dataset offsets while native ids stay put.
func TestOffsetsShiftIDs(t *testing.T) {
	s := newStubDataset(t, t.TempDir(), "StubDataset", 2, 2)
	mustLoad(t, s)

	s.SetParticipantOffset(10)
	s.SetMediaOffset(20)

	if got := s.ParticipantIDs(); !slices.Equal(got, []int{11, 12}) {
		t.Fatalf("expected participant ids [11 12], got %v", got)
	}
	if got := s.MediaIDs(); !slices.Equal(got, []int{21, 22}) {
		t.Fatalf("expected media ids [21 22], got %v", got)
	}

	trial := s.Trials()[0]
	if trial.ParticipantID() != 11 || trial.MediaID() != 21 {
		t.Fatalf("expected trial ids 11/21, got %d/%d", trial.ParticipantID(), trial.MediaID())
	}
	if trial.NativeParticipantID() != 1 || trial.NativeMediaID() != 1 {
		t.Fatalf("native ids must not shift, got %d/%d",
			trial.NativeParticipantID(), trial.NativeMediaID())
	}
}

// TestSetRandInjectsDeterminism verifies that two datasets seeded with the
// same source produce identical split partitions.
func TestSetRandInjectsDeterminism(t *testing.T) {
	root := t.TempDir()
	a := newStubDataset(t, root, "StubA", 10, 2)
	b := newStubDataset(t, root, "StubB", 10, 2)
	mustLoad(t, a)
	mustLoad(t, b)

	a.SetRand(rand.New(rand.NewSource(7)))
	b.SetRand(rand.New(rand.NewSource(7)))

	splitsA, err := a.GetTrialSplits([]float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("GetTrialSplits failed: %v", err)
	}
	splitsB, err := b.GetTrialSplits([]float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("GetTrialSplits failed: %v", err)
	}
	for i := range splitsA {
		if len(splitsA[i]) != len(splitsB[i]) {
			t.Fatalf("split %d sizes differ: %d vs %d", i, len(splitsA[i]), len(splitsB[i]))
		}
		for j := range splitsA[i] {
			if splitsA[i][j].ParticipantID() != splitsB[i][j].ParticipantID() {
				t.Fatalf("split %d trial %d differs between seeded runs", i, j)
			}
		}
	}
}
