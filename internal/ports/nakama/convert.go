package nakama

import (
	"fmt"

	"shengji/internal/app"
	"shengji/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// The wire format is protojson-encoded structpb values. Clients send
// and receive plain JSON while the server keeps a typed protobuf value
// tree it can inspect without generated message code.

func marshalWire(s *structpb.Struct) ([]byte, error) {
	return (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(s)
}

func unmarshalWire(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func fields(pairs map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: pairs}
}

func cardValue(c domain.Card) *structpb.Value {
	return structpb.NewStructValue(fields(map[string]*structpb.Value{
		"suit": structpb.NewStringValue(string(c.Suit)),
		"rank": structpb.NewNumberValue(float64(c.Rank)),
	}))
}

func cardsValue(cards []domain.Card) *structpb.Value {
	values := make([]*structpb.Value, 0, len(cards))
	for _, c := range cards {
		values = append(values, cardValue(c))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func cardFromValue(v *structpb.Value) (domain.Card, error) {
	s := v.GetStructValue()
	if s == nil {
		return domain.Card{}, fmt.Errorf("card must be an object")
	}
	c := domain.Card{
		Suit: domain.Suit(s.Fields["suit"].GetStringValue()),
		Rank: int(s.Fields["rank"].GetNumberValue()),
	}
	if !domain.ValidateCard(c) {
		return domain.Card{}, fmt.Errorf("invalid card %s", c)
	}
	return c, nil
}

func cardsFromValue(v *structpb.Value) ([]domain.Card, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("cards must be a list")
	}
	cards := make([]domain.Card, 0, len(list.Values))
	for _, item := range list.Values {
		c, err := cardFromValue(item)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func trumpValue(t domain.Trump) *structpb.Value {
	suit := structpb.NewNullValue()
	if t.Suit != domain.SuitNone {
		suit = structpb.NewStringValue(string(t.Suit))
	}
	return structpb.NewStructValue(fields(map[string]*structpb.Value{
		"suit":       suit,
		"rank":       structpb.NewNumberValue(float64(t.Rank)),
		"joker_call": structpb.NewBoolValue(t.JokerCall),
	}))
}

func trumpFromStruct(s *structpb.Struct) domain.Trump {
	t := domain.Trump{
		Rank:      int(s.Fields["rank"].GetNumberValue()),
		JokerCall: s.Fields["joker_call"].GetBoolValue(),
	}
	if suit, ok := s.Fields["suit"]; ok {
		t.Suit = domain.Suit(suit.GetStringValue())
	}
	return t
}

func playValue(p *domain.Play) *structpb.Value {
	if p == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewStructValue(fields(map[string]*structpb.Value{
		"cards": cardsValue(p.Cards),
		"suit":  structpb.NewStringValue(string(p.Suit)),
	}))
}

// gameView builds the snapshot one seat is allowed to see: its own hand
// in full, everyone else's as a count, and the dipai only by size until
// the round settles.
func gameView(g *domain.Game, seat int) *structpb.Struct {
	handSizes := make([]*structpb.Value, len(g.Hands))
	for i, h := range g.Hands {
		handSizes[i] = structpb.NewNumberValue(float64(h.Size()))
	}

	var hand *structpb.Value
	if h := g.HandOf(seat); h != nil {
		hand = cardsValue(h.Cards())
	} else {
		hand = structpb.NewNullValue()
	}

	players := make([]*structpb.Value, len(g.Players))
	for i, p := range g.Players {
		players[i] = structpb.NewStringValue(p)
	}

	return fields(map[string]*structpb.Value{
		"players":    structpb.NewListValue(&structpb.ListValue{Values: players}),
		"round":      structpb.NewNumberValue(float64(g.Round)),
		"trump":      trumpValue(g.Trump),
		"declare":    structpb.NewNumberValue(float64(g.Declare)),
		"draw":       structpb.NewBoolValue(g.Draw),
		"zhuang":     structpb.NewNumberValue(float64(g.Zhuang)),
		"atk":        structpb.NewNumberValue(float64(g.Atk)),
		"turn":       structpb.NewNumberValue(float64(g.Turn)),
		"chu":        structpb.NewNumberValue(float64(g.Chu)),
		"big":        structpb.NewNumberValue(float64(g.Big)),
		"lead":       playValue(g.Lead),
		"score":      structpb.NewNumberValue(float64(g.Score)),
		"points":     structpb.NewNumberValue(float64(g.Points)),
		"count":      structpb.NewNumberValue(float64(g.Count)),
		"over":       structpb.NewBoolValue(g.Over),
		"seat":       structpb.NewNumberValue(float64(seat)),
		"hand":       hand,
		"hand_sizes": structpb.NewListValue(&structpb.ListValue{Values: handSizes}),
		"deck_size":  structpb.NewNumberValue(float64(len(g.Deck))),
		"dipai_size": structpb.NewNumberValue(float64(len(g.Dipai))),
	})
}

func playFromValue(v *structpb.Value) (*domain.Play, error) {
	if v == nil || v.GetStructValue() == nil {
		return nil, nil
	}
	s := v.GetStructValue()
	cards, err := cardsFromValue(s.Fields["cards"])
	if err != nil {
		return nil, err
	}
	return &domain.Play{
		Cards: cards,
		Suit:  domain.Suit(s.Fields["suit"].GetStringValue()),
	}, nil
}

func handValue(h domain.Hand) *structpb.Value {
	return cardsValue(h.Cards())
}

func handFromValue(v *structpb.Value) (domain.Hand, error) {
	cards, err := cardsFromValue(v)
	if err != nil {
		return nil, err
	}
	h := domain.NewHand()
	for _, c := range cards {
		h.Add(c)
	}
	return h, nil
}

// gameStruct serializes the full authoritative state, hidden zones
// included. Only the storage adapter may use it; anything sent to a
// client goes through gameView.
func gameStruct(g *domain.Game) *structpb.Struct {
	players := make([]*structpb.Value, len(g.Players))
	for i, p := range g.Players {
		players[i] = structpb.NewStringValue(p)
	}
	hands := make([]*structpb.Value, len(g.Hands))
	for i, h := range g.Hands {
		hands[i] = handValue(h)
	}

	return fields(map[string]*structpb.Value{
		"players": structpb.NewListValue(&structpb.ListValue{Values: players}),
		"hands":   structpb.NewListValue(&structpb.ListValue{Values: hands}),
		"deck":    cardsValue(g.Deck),
		"round":   structpb.NewNumberValue(float64(g.Round)),
		"trump":   trumpValue(g.Trump),
		"alt":     structpb.NewNumberValue(float64(g.Alt)),
		"declare": structpb.NewNumberValue(float64(g.Declare)),
		"draw":    structpb.NewBoolValue(g.Draw),
		"zhuang":  structpb.NewNumberValue(float64(g.Zhuang)),
		"atk":     structpb.NewNumberValue(float64(g.Atk)),
		"dipai":   cardsValue(g.Dipai),
		"turn":    structpb.NewNumberValue(float64(g.Turn)),
		"chu":     structpb.NewNumberValue(float64(g.Chu)),
		"big":     structpb.NewNumberValue(float64(g.Big)),
		"lead":    playValue(g.Lead),
		"score":   structpb.NewNumberValue(float64(g.Score)),
		"points":  structpb.NewNumberValue(float64(g.Points)),
		"count":   structpb.NewNumberValue(float64(g.Count)),
		"over":    structpb.NewBoolValue(g.Over),
	})
}

func gameFromStruct(s *structpb.Struct) (*domain.Game, error) {
	g := &domain.Game{}

	for _, v := range s.Fields["players"].GetListValue().GetValues() {
		g.Players = append(g.Players, v.GetStringValue())
	}
	for _, v := range s.Fields["hands"].GetListValue().GetValues() {
		h, err := handFromValue(v)
		if err != nil {
			return nil, err
		}
		g.Hands = append(g.Hands, h)
	}

	var err error
	if deck := s.Fields["deck"]; deck.GetListValue() != nil && len(deck.GetListValue().Values) > 0 {
		if g.Deck, err = cardsFromValue(deck); err != nil {
			return nil, err
		}
	}
	if dipai := s.Fields["dipai"]; dipai.GetListValue() != nil && len(dipai.GetListValue().Values) > 0 {
		if g.Dipai, err = cardsFromValue(dipai); err != nil {
			return nil, err
		}
	}
	if g.Lead, err = playFromValue(s.Fields["lead"]); err != nil {
		return nil, err
	}

	if trump := s.Fields["trump"].GetStructValue(); trump != nil {
		g.Trump = trumpFromStruct(trump)
	}
	g.Round = int(s.Fields["round"].GetNumberValue())
	g.Alt = int(s.Fields["alt"].GetNumberValue())
	g.Declare = int(s.Fields["declare"].GetNumberValue())
	g.Draw = s.Fields["draw"].GetBoolValue()
	g.Zhuang = int(s.Fields["zhuang"].GetNumberValue())
	g.Atk = int(s.Fields["atk"].GetNumberValue())
	g.Turn = int(s.Fields["turn"].GetNumberValue())
	g.Chu = int(s.Fields["chu"].GetNumberValue())
	g.Big = int(s.Fields["big"].GetNumberValue())
	g.Score = int(s.Fields["score"].GetNumberValue())
	g.Points = int(s.Fields["points"].GetNumberValue())
	g.Count = int(s.Fields["count"].GetNumberValue())
	g.Over = s.Fields["over"].GetBoolValue()

	return g, nil
}

// eventStruct converts an app event payload to its wire value.
func eventStruct(ev app.Event) (*structpb.Struct, error) {
	switch p := ev.Payload.(type) {
	case app.GameStartedPayload:
		players := make([]*structpb.Value, len(p.Players))
		for i, id := range p.Players {
			players[i] = structpb.NewStringValue(id)
		}
		return fields(map[string]*structpb.Value{
			"players": structpb.NewListValue(&structpb.ListValue{Values: players}),
			"round":   structpb.NewNumberValue(float64(p.Round)),
		}), nil
	case app.CardDrawnPayload:
		return fields(map[string]*structpb.Value{
			"seat":      structpb.NewNumberValue(float64(p.Seat)),
			"card":      cardValue(p.Card),
			"next_turn": structpb.NewNumberValue(float64(p.NextTurn)),
		}), nil
	case app.DrawFinishedPayload:
		return fields(map[string]*structpb.Value{
			"zhuang": structpb.NewNumberValue(float64(p.Zhuang)),
			"trump":  trumpValue(p.Trump),
			"count":  structpb.NewNumberValue(float64(p.Count)),
		}), nil
	case app.TrumpDeclaredPayload:
		return fields(map[string]*structpb.Value{
			"seat":    structpb.NewNumberValue(float64(p.Seat)),
			"trump":   trumpValue(p.Trump),
			"declare": structpb.NewNumberValue(float64(p.Declare)),
		}), nil
	case app.CardPlayedPayload:
		return fields(map[string]*structpb.Value{
			"seat":      structpb.NewNumberValue(float64(p.Seat)),
			"cards":     cardsValue(p.Cards),
			"big_seat":  structpb.NewNumberValue(float64(p.BigSeat)),
			"next_turn": structpb.NewNumberValue(float64(p.NextTurn)),
		}), nil
	case app.TrickWonPayload:
		return fields(map[string]*structpb.Value{
			"seat":   structpb.NewNumberValue(float64(p.Seat)),
			"score":  structpb.NewNumberValue(float64(p.Score)),
			"points": structpb.NewNumberValue(float64(p.Points)),
		}), nil
	case app.RoundSettledPayload:
		return fields(map[string]*structpb.Value{
			"round":  structpb.NewNumberValue(float64(p.Round)),
			"trump":  trumpValue(p.Trump),
			"zhuang": structpb.NewNumberValue(float64(p.Zhuang)),
			"atk":    structpb.NewNumberValue(float64(p.Atk)),
		}), nil
	case app.GameEndedPayload:
		return fields(map[string]*structpb.Value{
			"trump":  trumpValue(p.Trump),
			"zhuang": structpb.NewNumberValue(float64(p.Zhuang)),
		}), nil
	default:
		return nil, fmt.Errorf("unknown event payload %T", ev.Payload)
	}
}

// eventOpCode maps an event kind to its broadcast op code.
func eventOpCode(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventGameStarted:
		return OpGameStarted, true
	case app.EventCardDrawn:
		return OpCardDrawn, true
	case app.EventDrawFinished:
		return OpDrawFinished, true
	case app.EventTrumpDeclared:
		return OpTrumpDeclared, true
	case app.EventCardPlayed:
		return OpCardPlayed, true
	case app.EventTrickWon:
		return OpTrickWon, true
	case app.EventRoundSettled:
		return OpRoundSettled, true
	case app.EventGameEnded:
		return OpGameEnded, true
	default:
		return 0, false
	}
}
