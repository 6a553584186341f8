package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/storefront/internal/domain"
)

// cartKeyPrefix namespaces cart documents.
const cartKeyPrefix = "cart-storage:"

type cartDocument struct {
	ID        string             `bson:"_id"`
	Region    string             `bson:"region,omitempty"`
	Items     []cartItemDocument `bson:"items"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type cartItemDocument struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Currency  string               `bson:"currency"`
	VolumeMl  int                  `bson:"volume_ml"`
	Image     string               `bson:"image"`
	Quantity  int                  `bson:"quantity"`
}

func toCartDocument(c *domain.Cart) (*cartDocument, error) {
	doc := &cartDocument{
		ID:        cartKeyPrefix + c.Key,
		Region:    string(c.Region),
		Items:     make([]cartItemDocument, 0, len(c.Lines)),
		UpdatedAt: c.UpdatedAt,
	}
	for _, l := range c.Lines {
		price, err := primitive.ParseDecimal128(l.UnitPrice.String())
		if err != nil {
			return nil, fmt.Errorf("encode price of %s: %w", l.ProductID, err)
		}
		doc.Items = append(doc.Items, cartItemDocument{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: price,
			Currency:  l.Currency,
			VolumeMl:  l.VolumeMl,
			Image:     l.ImageRef,
			Quantity:  l.Quantity,
		})
	}
	return doc, nil
}

func (d *cartDocument) toDomain(key string) (*domain.Cart, error) {
	c := domain.NewCart(key)
	c.Region = domain.Region(d.Region)
	c.UpdatedAt = d.UpdatedAt
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.UnitPrice.String())
		if err != nil {
			return nil, fmt.Errorf("decode price of %s: %w", it.ProductID, err)
		}
		c.Lines = append(c.Lines, domain.CartLine{
			CartItem: domain.CartItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				UnitPrice: price,
				Currency:  it.Currency,
				VolumeMl:  it.VolumeMl,
				ImageRef:  it.Image,
			},
			Quantity: it.Quantity,
		})
	}
	c.Normalize()
	return c, nil
}

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database, collection string) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(collection),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, key string) (*domain.Cart, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"_id": cartKeyPrefix + key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain(key)
}

func (m *mongoCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()

	doc, err := toCartDocument(cart)
	if err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// DeleteCart removes the cart document. A missing cart is not an error.
func (m *mongoCartRepository) DeleteCart(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": cartKeyPrefix + key}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// CreateIndexes expires carts that have not been touched for 90 days.
func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// EnsureIndexes creates the cart collection indexes when repo is backed by
// MongoDB and is a no-op otherwise.
func EnsureIndexes(ctx context.Context, repo CartRepository) error {
	if m, ok := repo.(*mongoCartRepository); ok {
		return m.CreateIndexes(ctx)
	}
	return nil
}
