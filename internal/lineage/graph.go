package lineage

import (
	"context"
	"time"

	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/repository"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/google/uuid"
)

type NodeType string

const (
	NodeApplication    NodeType = "application"
	NodeServiceAccount NodeType = "service_account"
	NodeTopic          NodeType = "topic"
)

type EdgeKind string

const (
	EdgeProduce EdgeKind = "produce"
	EdgeConsume EdgeKind = "consume"
	EdgeOwns    EdgeKind = "owns"
)

type GraphNode struct {
	ID       string    `json:"id"`
	Type     NodeType  `json:"type"`
	EntityID uuid.UUID `json:"entity_id"`

	// Label is the entity name, or its ID when the entity was not loaded.
	Label  string `json:"label"`
	Center bool   `json:"center,omitempty"`
}

type GraphEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`

	// Set on produce and consume edges only.
	LineageEdgeID    *uuid.UUID `json:"lineage_edge_id,omitempty"`
	BytesLast24h     int64      `json:"bytes_last_24h,omitempty"`
	MessagesLast24h  int64      `json:"messages_last_24h,omitempty"`
	BytesAllTime     int64      `json:"bytes_all_time,omitempty"`
	MessagesAllTime  int64      `json:"messages_all_time,omitempty"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
	IsActive         bool       `json:"is_active"`
	IsCrossWorkspace bool       `json:"is_cross_workspace"`
}

// Graph is a lineage view centered on one topic or application.
type Graph struct {
	Center string      `json:"center"`
	Nodes  []GraphNode `json:"nodes"`
	Edges  []GraphEdge `json:"edges"`
}

func nodeID(t NodeType, id uuid.UUID) string {
	return string(t) + ":" + id.String()
}

// graphBuilder deduplicates nodes and edges and keeps insertion order.
type graphBuilder struct {
	g     Graph
	nodes map[string]struct{}
	edges map[string]struct{}
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{
		g:     Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}},
		nodes: map[string]struct{}{},
		edges: map[string]struct{}{},
	}
}

func (b *graphBuilder) node(t NodeType, id uuid.UUID, label string, center bool) string {
	key := nodeID(t, id)
	if _, ok := b.nodes[key]; ok {
		return key
	}
	if label == "" {
		label = id.String()
	}
	b.nodes[key] = struct{}{}
	b.g.Nodes = append(b.g.Nodes, GraphNode{ID: key, Type: t, EntityID: id, Label: label, Center: center})
	if center {
		b.g.Center = key
	}
	return key
}

func (b *graphBuilder) application(ref models.Ref[models.Application], center bool) string {
	var label string
	if ref.IsResolved() {
		label = ref.Resolved.Name
	}
	return b.node(NodeApplication, ref.ID, label, center)
}

func (b *graphBuilder) serviceAccount(ref models.Ref[models.ServiceAccount]) string {
	var label string
	if ref.IsResolved() {
		label = ref.Resolved.Name
	}
	return b.node(NodeServiceAccount, ref.ID, label, false)
}

func (b *graphBuilder) topic(ref models.Ref[models.Topic], center bool) string {
	var label string
	if ref.IsResolved() {
		label = ref.Resolved.Name
	}
	return b.node(NodeTopic, ref.ID, label, center)
}

func (b *graphBuilder) owns(owner, owned string) {
	id := string(EdgeOwns) + ":" + owner + "->" + owned
	if _, ok := b.edges[id]; ok {
		return
	}
	b.edges[id] = struct{}{}
	b.g.Edges = append(b.g.Edges, GraphEdge{ID: id, Source: owner, Target: owned, Kind: EdgeOwns, IsActive: true})
}

// lineage adds one stored edge, both of its endpoints, and ownership edges
// for whichever counterpart applications are known.
func (b *graphBuilder) lineage(e models.LineageEdge) {
	id := "lineage:" + e.ID.String()
	if _, ok := b.edges[id]; ok {
		return
	}
	b.edges[id] = struct{}{}

	sa := b.serviceAccount(e.ServiceAccountRef())
	tp := b.topic(e.TopicRef(), false)

	ge := GraphEdge{
		ID:               id,
		Source:           sa,
		Target:           tp,
		Kind:             EdgeProduce,
		LineageEdgeID:    &e.ID,
		BytesLast24h:     e.BytesLast24h,
		MessagesLast24h:  e.MessagesLast24h,
		BytesAllTime:     e.BytesAllTime,
		MessagesAllTime:  e.MessagesAllTime,
		LastSeen:         &e.LastSeen,
		IsActive:         e.IsActive,
		IsCrossWorkspace: e.IsCrossWorkspace,
	}
	if e.Direction == models.DirectionConsume {
		ge.Source, ge.Target, ge.Kind = tp, sa, EdgeConsume
	}
	b.g.Edges = append(b.g.Edges, ge)

	if ref, ok := e.SourceApplicationRef(); ok {
		b.owns(b.application(ref, false), sa)
	}
	if ref, ok := e.TargetApplicationRef(); ok {
		b.owns(b.application(ref, false), tp)
	}
}

func (b *graphBuilder) build() *Graph {
	return &b.g
}

var graphPreload = []string{
	models.EdgeSourceServiceAccount,
	models.EdgeTopic,
	models.EdgeSourceApplication,
	models.EdgeTargetApplication,
}

func activeOnly(opts QueryOptions) repository.Where {
	if opts.IncludeInactive {
		return repository.Where{}
	}
	return repository.Eq("is_active", true)
}

func (t *Tracker) findEdges(ctx context.Context, where repository.Where, opts QueryOptions, preload []string) ([]models.LineageEdge, error) {
	return t.store.Edges.Find(ctx, repository.And(where, activeOnly(opts)), repository.FindOptions{
		Limit:   opts.Limit,
		Sort:    "-last_seen",
		Preload: preload,
	})
}

// GetTopicLineageGraph returns the topic with every service account that
// produces to or consumes from it.
func (t *Tracker) GetTopicLineageGraph(ctx context.Context, topicID uuid.UUID, opts QueryOptions) (*Graph, error) {
	var topic models.Topic
	if err := t.store.Topics.FindByID(ctx, topicID, &topic, repository.FindOptions{Preload: []string{"Application"}}); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.Newf(appErr.CodeNotFound, "Topic not found: %s", topicID)
		}
		return nil, err
	}

	edges, err := t.findEdges(ctx, repository.Eq("topic_id", topicID), opts, graphPreload)
	if err != nil {
		return nil, err
	}

	b := newGraphBuilder()
	center := b.topic(models.RefOf(topic.ID, &topic), true)
	if ref, ok := models.OptionalRef(topic.ApplicationID, topic.Application); ok {
		b.owns(b.application(ref, false), center)
	}
	for _, e := range edges {
		b.lineage(e)
	}
	return b.build(), nil
}

// GetApplicationLineageGraph returns the application with the traffic of its
// own service accounts and the traffic on topics it owns.
func (t *Tracker) GetApplicationLineageGraph(ctx context.Context, applicationID uuid.UUID, opts QueryOptions) (*Graph, error) {
	var app models.Application
	if err := t.store.Applications.GetByID(ctx, applicationID, &app); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.Newf(appErr.CodeNotFound, "Application not found: %s", applicationID)
		}
		return nil, err
	}

	asSource, err := t.findEdges(ctx, repository.Eq("source_application_id", applicationID), opts, graphPreload)
	if err != nil {
		return nil, err
	}
	asTarget, err := t.findEdges(ctx, repository.Eq("target_application_id", applicationID), opts, graphPreload)
	if err != nil {
		return nil, err
	}

	b := newGraphBuilder()
	b.application(models.RefOf(app.ID, &app), true)
	for _, e := range asSource {
		b.lineage(e)
	}
	// edges inside the application appear in both queries; the builder drops the repeat
	for _, e := range asTarget {
		b.lineage(e)
	}
	return b.build(), nil
}
