package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
)

type firestoreProductRepository struct {
	client *firestore.Client
}

func NewFirestoreProductRepository(client *firestore.Client) repository.ProductRepository {
	return &firestoreProductRepository{
		client: client,
	}
}

func (r *firestoreProductRepository) Create(ctx context.Context, product *entity.Product) error {
	_, err := r.client.Collection(productsCollection).Doc(product.ID).Set(ctx, product)
	return storeError("Product", "create product", err)
}

func (r *firestoreProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	doc, err := r.client.Collection(productsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("Product", "get product", err)
	}

	var product entity.Product
	if err := doc.DataTo(&product); err != nil {
		return nil, errors.Internal("Failed to parse product data", err)
	}
	product.ID = doc.Ref.ID
	return &product, nil
}
