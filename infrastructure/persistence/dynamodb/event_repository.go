package dynamodb

import (
	"context"
	"fmt"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const eventCollection = "events"

// EventRepository persists archive events. Sorting by start date runs on
// GSI1, by title on GSI2.
type EventRepository struct {
	client *Client
	logger *zap.Logger
}

// NewEventRepository creates an event repository.
func NewEventRepository(client *Client, logger *zap.Logger) ports.EventRepository {
	return &EventRepository{client: client, logger: logger}
}

type eventItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	GSI1PK      string   `dynamodbav:"GSI1PK"`
	GSI1SK      string   `dynamodbav:"GSI1SK"`
	GSI2PK      string   `dynamodbav:"GSI2PK"`
	GSI2SK      string   `dynamodbav:"GSI2SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	EventID     string   `dynamodbav:"EventID"`
	Title       string   `dynamodbav:"Title"`
	Description string   `dynamodbav:"Description"`
	StartDate   string   `dynamodbav:"StartDate"`
	EndDate     string   `dynamodbav:"EndDate,omitempty"`
	ImageRef    string   `dynamodbav:"ImageRef,omitempty"`
	Venue       string   `dynamodbav:"Venue,omitempty"`
	Address     string   `dynamodbav:"Address,omitempty"`
	City        string   `dynamodbav:"City,omitempty"`
	Country     string   `dynamodbav:"Country,omitempty"`
	Latitude    float64  `dynamodbav:"Latitude,omitempty"`
	Longitude   float64  `dynamodbav:"Longitude,omitempty"`
	Organizer   string   `dynamodbav:"Organizer,omitempty"`
	TicketURL   string   `dynamodbav:"TicketURL,omitempty"`
	WebsiteURL  string   `dynamodbav:"WebsiteURL,omitempty"`
	Keywords    []string `dynamodbav:"Keywords,omitempty"`
}

func eventToItem(e *domain.Event) eventItem {
	item := eventItem{
		PK:          collectionPK(eventCollection),
		SK:          recordSK(e.ID),
		GSI1PK:      collectionPK(eventCollection),
		GSI1SK:      sortableTime(e.StartDate, e.ID),
		GSI2PK:      collectionPK(eventCollection),
		GSI2SK:      sortableText(e.Title, e.ID),
		EntityType:  "EVENT",
		EventID:     e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartDate:   e.StartDate.UTC().Format(time.RFC3339),
		ImageRef:    e.ImageRef,
		Venue:       e.Venue,
		Address:     e.Address,
		City:        e.City,
		Country:     e.Country,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		Organizer:   e.Organizer,
		TicketURL:   e.TicketURL,
		WebsiteURL:  e.WebsiteURL,
		Keywords:    e.Keywords,
	}
	if !e.EndDate.IsZero() {
		item.EndDate = e.EndDate.UTC().Format(time.RFC3339)
	}
	return item
}

func itemToEvent(item eventItem) domain.Event {
	return domain.Event{
		ID:          item.EventID,
		Title:       item.Title,
		Description: item.Description,
		StartDate:   parseStoredTime(item.StartDate),
		EndDate:     parseStoredTime(item.EndDate),
		ImageRef:    item.ImageRef,
		Venue:       item.Venue,
		Address:     item.Address,
		City:        item.City,
		Country:     item.Country,
		Latitude:    item.Latitude,
		Longitude:   item.Longitude,
		Organizer:   item.Organizer,
		TicketURL:   item.TicketURL,
		WebsiteURL:  item.WebsiteURL,
		Keywords:    item.Keywords,
		Source:      domain.SourceArchive,
	}
}

// Page implements ports.PageSource for archive events.
func (r *EventRepository) Page(ctx context.Context, req ports.PageRequest) (ports.Page[domain.Event], error) {
	idx, err := eventSortIndex(req.SortField)
	if err != nil {
		return ports.Page[domain.Event]{}, err
	}

	items, first, last, err := r.client.queryPage(ctx, eventCollection, idx, req)
	if err != nil {
		return ports.Page[domain.Event]{}, err
	}

	events := make([]domain.Event, 0, len(items))
	for _, raw := range items {
		var item eventItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return ports.Page[domain.Event]{}, fmt.Errorf("failed to unmarshal event item: %w", err)
		}
		events = append(events, itemToEvent(item))
	}

	return ports.Page[domain.Event]{Items: events, First: first, Last: last}, nil
}

// Count implements ports.PageSource for archive events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	return r.client.count(ctx, eventCollection)
}

// Get loads one event by id.
func (r *EventRepository) Get(ctx context.Context, id string) (*domain.Event, error) {
	out, err := r.client.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.client.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: collectionPK(eventCollection)},
			attrSK: &types.AttributeValueMemberS{Value: recordSK(id)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}

	var item eventItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event %s: %w", id, err)
	}
	event := itemToEvent(item)
	return &event, nil
}

// Put stores or overwrites an event.
func (r *EventRepository) Put(ctx context.Context, event *domain.Event) error {
	av, err := attributevalue.MarshalMap(eventToItem(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := r.client.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.client.table),
		Item:      av,
	}); err != nil {
		r.logger.Error("Failed to save event", zap.Error(err), zap.String("eventID", event.ID))
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// Delete removes an event. Deleting a missing event is not an error.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.client.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: collectionPK(eventCollection)},
			attrSK: &types.AttributeValueMemberS{Value: recordSK(id)},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

// ListAll returns every archive event in start-date order, following
// DynamoDB's result pagination. The aggregation tier caches the outcome, so
// this full read runs rarely relative to how often events are served.
func (r *EventRepository) ListAll(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	var start map[string]types.AttributeValue

	for {
		out, err := r.client.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.client.table),
			IndexName:              aws.String(r.client.gsi1Name),
			KeyConditionExpression: aws.String("#pk = :pk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": attrGSI1PK,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: collectionPK(eventCollection)},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		for _, raw := range out.Items {
			var item eventItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event item: %w", err)
			}
			events = append(events, itemToEvent(item))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		start = out.LastEvaluatedKey
	}

	return events, nil
}

func eventSortIndex(field string) (sortIndex, error) {
	switch field {
	case "", "startDate":
		return gsi1, nil
	case "title":
		return gsi2, nil
	default:
		return sortIndex{}, fmt.Errorf("events cannot be sorted by %q", field)
	}
}
