package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Partition именованная, независимо индексируемая часть векторного хранилища
type Partition string

const (
	PartitionText     Partition = "text_search"
	PartitionImage    Partition = "image_search"
	PartitionCombined Partition = "combined_search"
)

// Partitions перечисляет все партиции в порядке записи.
var Partitions = []Partition{PartitionText, PartitionImage, PartitionCombined}

// partitionNamespace пространство имён UUIDv5 для ключей партиций
var partitionNamespace = uuid.MustParse("5b0c6a52-8f3e-4c1e-9d3a-7f0b2a6c9e41")

// PartitionKey структурированный ключ записи эмбеддингов в партиции
type PartitionKey struct {
	ProductID string
	Partition Partition
}

func NewPartitionKey(productID string, partition Partition) PartitionKey {
	return PartitionKey{ProductID: productID, Partition: partition}
}

// PointID детерминированно отображает ключ в идентификатор точки хранилища.
// Одинаковые товары в разных партициях никогда не совпадают по ID.
func (k PartitionKey) PointID() string {
	return uuid.NewSHA1(partitionNamespace, []byte(string(k.Partition)+"/"+k.ProductID)).String()
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%s", k.Partition, k.ProductID)
}
