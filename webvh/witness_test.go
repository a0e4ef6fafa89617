package webvh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webvh-go/did/proof"
	"github.com/webvh-go/did/webvh"
)

func TestValidateWitnessNilIsValid(t *testing.T) {
	require.NoError(t, webvh.ValidateWitness(nil))
}

func TestValidateWitnessRejectsThresholdAboveWeightSum(t *testing.T) {
	w := &webvh.Witness{
		Threshold: 10,
		Witnesses: []webvh.WitnessWeight{{ID: "did:key:z6Mk1", Weight: 1}},
	}
	require.Error(t, webvh.ValidateWitness(w))
}

func TestValidateWitnessRejectsNonDidKeyID(t *testing.T) {
	w := &webvh.Witness{
		Threshold: 1,
		Witnesses: []webvh.WitnessWeight{{ID: "did:web:example.com", Weight: 1}},
	}
	require.Error(t, webvh.ValidateWitness(w))
}

func TestVerifyWitnessSumsWeightsAcrossProofs(t *testing.T) {
	w1 := newMemSigner(t)
	w2 := newMemSigner(t)
	w1DID := "did:key:" + w1.multibase()
	w2DID := "did:key:" + w2.multibase()

	witness := &webvh.Witness{
		Threshold: 2,
		Witnesses: []webvh.WitnessWeight{
			{ID: w1DID, Weight: 1},
			{ID: w2DID, Weight: 1},
		},
	}

	entry := &webvh.LogEntry{
		VersionID:   "1-abc",
		VersionTime: time.Now(),
		Parameters:  webvh.Parameters{Method: webvh.MethodVersion, SCID: "abc"},
		State:       nil,
	}

	p1, err := proof.Sign(context.Background(), *entry, &witnessSigner{w1, w1DID + "#" + w1.multibase()}, proof.PurposeAuthentication, time.Now())
	require.NoError(t, err)

	p2, err := proof.Sign(context.Background(), *entry, &witnessSigner{w2, w2DID + "#" + w2.multibase()}, proof.PurposeAuthentication, time.Now())
	require.NoError(t, err)

	require.NoError(t, webvh.VerifyWitness(entry, witness, []*proof.Proof{p1, p2}))
}

func TestVerifyWitnessFailsBelowThreshold(t *testing.T) {
	w1 := newMemSigner(t)
	witness := &webvh.Witness{
		Threshold: 2,
		Witnesses: []webvh.WitnessWeight{{ID: "did:key:" + w1.multibase(), Weight: 1}},
	}

	entry := &webvh.LogEntry{
		VersionID:   "1-abc",
		VersionTime: time.Now(),
		Parameters:  webvh.Parameters{Method: webvh.MethodVersion, SCID: "abc"},
	}

	p1, err := proof.Sign(context.Background(), *entry, &witnessSigner{w1, "did:key:" + w1.multibase() + "#" + w1.multibase()}, proof.PurposeAuthentication, time.Now())
	require.NoError(t, err)

	err = webvh.VerifyWitness(entry, witness, []*proof.Proof{p1})
	require.Error(t, err)
}

func TestVerifyWitnessIgnoresUnknownWitness(t *testing.T) {
	known := newMemSigner(t)
	unknown := newMemSigner(t)
	witness := &webvh.Witness{
		Threshold: 1,
		Witnesses: []webvh.WitnessWeight{{ID: "did:key:" + known.multibase(), Weight: 1}},
	}

	entry := &webvh.LogEntry{
		VersionID:   "1-abc",
		VersionTime: time.Now(),
		Parameters:  webvh.Parameters{Method: webvh.MethodVersion, SCID: "abc"},
	}

	p, err := proof.Sign(context.Background(), *entry, unknown, proof.PurposeAuthentication, time.Now())
	require.NoError(t, err)
	p.VerificationMethod = "did:key:" + unknown.multibase() + "#" + unknown.multibase()

	err = webvh.VerifyWitness(entry, witness, []*proof.Proof{p})
	require.Error(t, err)
}

// witnessSigner signs as a witness: its verificationMethod is the
// witness's did:key URL with the multibase key as fragment, so the signed
// proof config already carries the value VerifyWitness looks up.
type witnessSigner struct {
	*memSigner
	vm string
}

func (s *witnessSigner) VerificationMethod() string { return s.vm }
