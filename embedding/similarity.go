package embedding

import (
	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
)

// Similarity returns the cosine similarity of two embeddings. Stored vectors
// are ranked by cosine distance, which is 1 - Similarity.
func Similarity(a, b Vector) (float64, error) {
	return stats.CosineSimilarity(a, b)
}

// Distance returns the cosine distance of two embeddings
func Distance(a, b Vector) (float64, error) {
	return stats.CosineDistance(a, b)
}
