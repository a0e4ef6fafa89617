// Package resolve implements the Resolver Dispatcher: routing a DID URL
// to the correct method plug-in and then dereferencing the resolved
// Document to the sub-resource the URL names.
package resolve

import (
	"context"

	"github.com/webvh-go/did"
	"github.com/webvh-go/did/diderr"
	"github.com/webvh-go/did/method/jwk"
	"github.com/webvh-go/did/method/key"
	"github.com/webvh-go/did/method/web"
	"github.com/webvh-go/did/method/webvh"
)

// ResourceKind tags which variant of Resource is populated: the result of
// a dereference is either a whole Document, a VerificationMethod, or a
// Service.
type ResourceKind int

const (
	ResourceDocument ResourceKind = iota
	ResourceVerificationMethod
	ResourceService
)

// Resource is the result of dereferencing a DID URL: the whole Document,
// or one VerificationMethod, or one Service.
type Resource struct {
	Kind     ResourceKind
	Document *did.Document
	Method   *did.VerificationMethod
	Service  *did.Service
}

// Options configures Dispatch: DeriveKeyAgreement applies to did:key
// resolution; Resolver is the hook used for did:web and
// did:webvh fetches, unused by did:key/did:jwk.
type Options struct {
	Resolver           did.Resolver
	DeriveKeyAgreement bool
}

// Dispatch routes u to the method plug-in matching u.Method, resolves the
// Document, and dereferences it to the sub-resource u names.
func Dispatch(ctx context.Context, u *did.URL, opts Options) (Resource, error) {
	doc, err := resolveDocument(ctx, u, opts)
	if err != nil {
		return Resource{}, err
	}
	return dereference(doc, u)
}

func resolveDocument(ctx context.Context, u *did.URL, opts Options) (*did.Document, error) {
	switch did.Method(u.Method) {
	case did.MethodKey:
		return key.Resolve(u.DID, opts.DeriveKeyAgreement)
	case did.MethodJwk:
		return jwk.Resolve(u.DID)
	case did.MethodWeb:
		if opts.Resolver == nil {
			return nil, diderr.New(diderr.KindIO, "did:web resolution requires a Resolver hook").WithDID(u.DID.String())
		}
		return web.Resolve(ctx, u.DID, opts.Resolver)
	case did.MethodWebvh:
		if opts.Resolver == nil {
			return nil, diderr.New(diderr.KindIO, "did:webvh resolution requires a Resolver hook").WithDID(u.DID.String())
		}
		return webvh.Resolve(ctx, u.DID, opts.Resolver, u.Query)
	default:
		return nil, diderr.New(diderr.KindUnsupportedMethod, "unsupported method: "+u.Method).WithDID(u.DID.String())
	}
}

// dereference navigates doc to the sub-resource u names: a `service`
// query parameter selects a Service, a fragment selects a
// VerificationMethod, and otherwise the whole Document is returned.
func dereference(doc *did.Document, u *did.URL) (Resource, error) {
	if u.Query != nil && u.Query.Service != "" {
		svc := doc.ServiceOrNil(u.Query.Service)
		if svc == nil {
			return Resource{}, diderr.New(diderr.KindNotFound, "service not found: "+u.Query.Service).WithURL(u.String())
		}
		return Resource{Kind: ResourceService, Service: svc}, nil
	}

	if u.Fragment != "" {
		vmID := (&did.URL{DID: u.DID, Fragment: u.Fragment}).String()
		vm := doc.VerificationMethodOrNil(vmID)
		if vm == nil {
			return Resource{}, diderr.New(diderr.KindNotFound, "verification method not found: "+vmID).WithURL(u.String())
		}
		return Resource{Kind: ResourceVerificationMethod, Method: vm}, nil
	}

	return Resource{Kind: ResourceDocument, Document: doc}, nil
}
