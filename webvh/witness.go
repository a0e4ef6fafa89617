package webvh

import (
	"strings"

	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/internal/mkey"
	"github.com/webvh-go/did/proof"
)

// ValidateWitness checks the structural shape of a Witness policy: no
// proof verification is performed here. A nil Witness is
// always valid (witnessing is optional).
func ValidateWitness(w *Witness) error {
	if w == nil {
		return nil
	}
	if w.Threshold <= 0 {
		return diderr.New(diderr.KindInvalidOperation, "witness threshold must be positive")
	}
	if len(w.Witnesses) == 0 {
		return diderr.New(diderr.KindInvalidOperation, "witness list must not be empty")
	}
	sum := 0
	for _, ww := range w.Witnesses {
		if !strings.HasPrefix(ww.ID, "did:key:") {
			return diderr.New(diderr.KindInvalidOperation, "witness id must be a did:key: "+ww.ID)
		}
		if ww.Weight <= 0 {
			return diderr.New(diderr.KindInvalidOperation, "witness weight must be positive: "+ww.ID)
		}
		sum += ww.Weight
	}
	if sum < w.Threshold {
		return diderr.New(diderr.KindInvalidOperation, "sum of witness weights is below threshold")
	}
	return nil
}

// VerifyWitness sums the weights of every witness in w whose proof on
// entry verifies against that witness's did:key key material, ignoring
// proofs for unknown witnesses. It does not look at versionIds: every
// proof passed in is checked against entry (Resolve passes only the
// proofs recorded for the entry's versionId). Succeeds iff the sum
// reaches w.Threshold; never fails on a single bad proof.
func VerifyWitness(entry *LogEntry, w *Witness, witnessProofs []*proof.Proof) error {
	if w == nil {
		return nil
	}
	weightByID := make(map[string]int, len(w.Witnesses))
	for _, ww := range w.Witnesses {
		weightByID[ww.ID] = ww.Weight
	}

	sum := 0
	for _, p := range witnessProofs {
		vmID := p.VerificationMethod
		i := strings.IndexByte(vmID, '#')
		if i < 0 {
			continue
		}
		witnessDID := vmID[:i]
		weight, known := weightByID[witnessDID]
		if !known {
			continue
		}

		_, rawKey, err := mkey.Decode(vmID[i+1:])
		if err != nil {
			continue
		}

		if proof.Verify(entry.withoutProof(), p, rawKey) != nil {
			continue
		}
		sum += weight
	}

	if sum < w.Threshold {
		return diderr.New(diderr.KindWitnessThreshold, "witness proofs below threshold")
	}
	return nil
}
