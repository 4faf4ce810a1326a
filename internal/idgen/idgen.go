package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"

	"github.com/baharkarakas/simsforum/internal/models"
)

// Generator hands out snowflake ids: unique per node and increasing in
// creation order, even for records created in the same millisecond.
type Generator struct {
	node *snowflake.Node
}

func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Next() models.ID { return models.ID(g.node.Generate().Int64()) }
