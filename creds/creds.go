// Package creds writes TLS credentials into persistent modem storage.
// Credentials are keyed by a caller-chosen integer tag and survive power
// cycles; a secure socket references tags at construction time. Provision
// before the first secure connect -- the store has no transactions, so a
// failed provisioning leaves the tag in a vendor-defined state and the
// whole tag should be provisioned again.
package creds

import (
	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/socket"
	"github.com/pkg/errors"
)

// Provision stores the credential set for tag: a root CA chain, and
// optionally a client certificate and key for client-side authentication
// (pass nil to skip either). Existing objects under the tag are deleted
// first, best effort. Each non-empty object is written with one store call;
// the first failing write is reported as a socket.ProvisioningError naming
// the object kind, or socket.ErrBusy when the secure stack holds the tag.
// There is no rollback.
func Provision(layer nif.Layer, tag uint32, rootCA, clientCert, clientKey []byte) error {
	for kind := nif.CredRootCA; kind <= nif.CredClientKey; kind++ {
		// Stale objects would otherwise shadow a partial rewrite.
		layer.CredDelete(tag, kind)
	}

	objects := []struct {
		kind int
		data []byte
	}{
		{nif.CredRootCA, rootCA},
		{nif.CredClientCert, clientCert},
		{nif.CredClientKey, clientKey},
	}

	for _, obj := range objects {
		if len(obj.data) == 0 {
			continue
		}
		if ret := layer.CredWrite(tag, obj.kind, obj.data); ret < 0 {
			if -ret == nif.EBusy {
				return errors.Wrapf(socket.ErrBusy, "writing tag %v", tag)
			}
			return socket.ProvisioningError{Kind: obj.kind, Errno: -ret}
		}
	}
	return nil
}

// Unprovision deletes every credential object stored under tag. Objects
// that were never written are skipped; the first real failure is reported.
func Unprovision(layer nif.Layer, tag uint32) error {
	for kind := nif.CredRootCA; kind <= nif.CredClientKey; kind++ {
		ret := layer.CredDelete(tag, kind)
		if ret < 0 && -ret != nif.ENoEnt {
			if -ret == nif.EBusy {
				return errors.Wrapf(socket.ErrBusy, "deleting tag %v", tag)
			}
			return socket.ProvisioningError{Kind: kind, Errno: -ret}
		}
	}
	return nil
}
