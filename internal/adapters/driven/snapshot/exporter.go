// Package snapshot exports resolved scene trees as content-addressed
// archives.
//
// Every document becomes one dag-cbor block. Resolved children are stored
// first and referenced from their parent's "@children" map by CID, so the
// root CID identifies the whole tree. The blocks are written as a CARv1
// stream rooted at that CID.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-car/v2"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/linking"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/ipld/go-ipld-prime/storage/memstore"
	"github.com/ipld/go-ipld-prime/traversal/selector"
	"github.com/ipld/go-ipld-prime/traversal/selector/builder"

	// registers the dag-cbor codec with the link system
	_ "github.com/ipld/go-ipld-prime/codec/dagcbor"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driven"
)

var linkPrototype = cidlink.LinkPrototype{Prefix: cid.Prefix{
	Version:  1,
	Codec:    cid.DagCBOR,
	MhType:   0x12, // sha2-256
	MhLength: 32,
}}

// structural keys are written from Document fields, never from Props.
var structural = map[string]bool{
	domain.KeyName:     true,
	domain.KeyID:       true,
	domain.KeyType:     true,
	domain.KeyClass:    true,
	domain.KeyVersion:  true,
	domain.KeyChildren: true,
}

var _ driven.SnapshotExporter = (*Exporter)(nil)

// Exporter implements driven.SnapshotExporter.
type Exporter struct{}

// NewExporter creates an Exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes doc as a CARv1 archive to w and returns the root CID.
func (e *Exporter) Export(ctx context.Context, doc *domain.ResolvedDocument, w io.Writer) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: nothing to export", domain.ErrInvalidInput)
	}

	store := &memstore.Store{}
	lsys := cidlink.DefaultLinkSystem()
	lsys.SetReadStorage(store)
	lsys.SetWriteStorage(store)

	root, err := storeTree(ctx, &lsys, doc)
	if err != nil {
		return "", err
	}

	ssb := builder.NewSelectorSpecBuilder(basicnode.Prototype.Any)
	sel := ssb.ExploreRecursive(selector.RecursionLimitNone(), ssb.ExploreAll(ssb.ExploreRecursiveEdge()))

	cw, err := car.NewSelectiveWriter(ctx, &lsys, root, sel.Node(), car.WriteAsCarV1(true))
	if err != nil {
		return "", fmt.Errorf("preparing archive: %w", err)
	}
	if _, err := cw.WriteTo(w); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return root.String(), nil
}

// storeTree stores doc and its resolved descendants and returns the CID
// of doc's block.
func storeTree(ctx context.Context, lsys *linking.LinkSystem, doc *domain.ResolvedDocument) (cid.Cid, error) {
	links := make(map[string]datamodel.Link, len(doc.Nodes))
	for _, id := range doc.ChildIDs() {
		child, ok := doc.Child(id)
		if !ok || child == nil {
			continue
		}
		c, err := storeTree(ctx, lsys, child)
		if err != nil {
			return cid.Undef, err
		}
		links[id] = cidlink.Link{Cid: c}
	}

	node, err := buildDocument(doc, links)
	if err != nil {
		return cid.Undef, fmt.Errorf("building %s: %w", doc.Name, err)
	}

	lnk, err := lsys.Store(linking.LinkContext{Ctx: ctx}, linkPrototype, node)
	if err != nil {
		return cid.Undef, fmt.Errorf("storing %s: %w", doc.Name, err)
	}
	return lnk.(cidlink.Link).Cid, nil
}

// buildDocument assembles the block for one document. Children without a
// link are unresolved and encode as null.
func buildDocument(doc *domain.ResolvedDocument, links map[string]datamodel.Link) (datamodel.Node, error) {
	nb := basicnode.Prototype.Map.NewBuilder()
	ma, err := nb.BeginMap(-1)
	if err != nil {
		return nil, err
	}

	entry := func(key string, assign func(datamodel.NodeAssembler) error) error {
		va, err := ma.AssembleEntry(key)
		if err != nil {
			return err
		}
		return assign(va)
	}
	for _, f := range []struct{ key, val string }{
		{domain.KeyName, doc.Name},
		{domain.KeyID, doc.ID},
		{domain.KeyType, doc.Type},
		{domain.KeyClass, doc.Class},
	} {
		if f.val == "" {
			continue
		}
		val := f.val
		if err := entry(f.key, func(na datamodel.NodeAssembler) error { return na.AssignString(val) }); err != nil {
			return nil, err
		}
	}
	if err := entry(domain.KeyVersion, func(na datamodel.NodeAssembler) error { return na.AssignInt(doc.Version) }); err != nil {
		return nil, err
	}

	ids := doc.ChildIDs()
	childrenAssembler, err := ma.AssembleEntry(domain.KeyChildren)
	if err != nil {
		return nil, err
	}
	ca, err := childrenAssembler.BeginMap(int64(len(ids)))
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		va, err := ca.AssembleEntry(id)
		if err != nil {
			return nil, err
		}
		if lnk, ok := links[id]; ok {
			err = va.AssignLink(lnk)
		} else {
			err = va.AssignNull()
		}
		if err != nil {
			return nil, err
		}
	}
	if err := ca.Finish(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(doc.Props))
	for key := range doc.Props {
		if !structural[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := doc.Props[key]
		va, err := ma.AssembleEntry(key)
		if err != nil {
			return nil, err
		}
		if err := assignValue(va, val); err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
	}

	if err := ma.Finish(); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

func assignValue(na datamodel.NodeAssembler, v domain.Value) error {
	switch v.Kind() {
	case domain.KindNull:
		return na.AssignNull()
	case domain.KindBool:
		b, _ := v.AsBool()
		return na.AssignBool(b)
	case domain.KindNumber:
		if i, ok := v.AsInt(); ok {
			return na.AssignInt(i)
		}
		f, ok := v.AsFloat()
		if !ok {
			lit, _ := v.Literal()
			return fmt.Errorf("number %s out of range", lit)
		}
		return na.AssignFloat(f)
	case domain.KindString:
		s, _ := v.AsString()
		return na.AssignString(s)
	case domain.KindList:
		items := v.Items()
		la, err := na.BeginList(int64(len(items)))
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := assignValue(la.AssembleValue(), item); err != nil {
				return err
			}
		}
		return la.Finish()
	case domain.KindMap:
		keys := v.Keys()
		ma, err := na.BeginMap(int64(len(keys)))
		if err != nil {
			return err
		}
		for _, k := range keys {
			field, _ := v.Field(k)
			va, err := ma.AssembleEntry(k)
			if err != nil {
				return err
			}
			if err := assignValue(va, field); err != nil {
				return err
			}
		}
		return ma.Finish()
	default:
		return fmt.Errorf("unsupported value kind %s", v.Kind())
	}
}
