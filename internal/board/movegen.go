package board

// Move generation is staged by type, so callers (the move picker in
// particular) can ask for exactly the moves their current phase wants:
//
//	GenerateCaptures    captures, en passant, and all promotions
//	GenerateQuiets      the complement: quiet moves, castling included
//	GenerateEvasions    check evasions (king steps, blocks, checker captures)
//	GenerateQuietChecks non-capture moves giving direct check
//
// Captures and quiets partition the full pseudo-legal set.

// GeneratePseudoLegal appends all pseudo-legal moves to ml.
func (p *Position) GeneratePseudoLegal(ml *MoveList) {
	p.GenerateCaptures(ml)
	p.GenerateQuiets(ml)
}

// GenerateCaptures appends pseudo-legal captures and promotions to ml.
func (p *Position) GenerateCaptures(ml *MoveList) {
	us := p.SideToMove
	enemies := p.Occupied[us.Other()]
	occupied := p.AllOccupied

	p.generatePawnCaptures(ml, us)

	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := PieceAttacks(pt, from, occupied) & enemies
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	kingBB := p.Pieces[us][King]
	if kingBB != 0 {
		from := kingBB.LSB()
		attacks := KingAttacks(from) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
}

// GenerateQuiets appends pseudo-legal non-capture, non-promotion moves to ml,
// castling included.
func (p *Position) GenerateQuiets(ml *MoveList) {
	us := p.SideToMove
	empty := ^p.AllOccupied
	occupied := p.AllOccupied

	p.generatePawnQuiets(ml, us)

	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := PieceAttacks(pt, from, occupied) & empty
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	kingBB := p.Pieces[us][King]
	if kingBB != 0 {
		from := kingBB.LSB()
		attacks := KingAttacks(from) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	p.generateCastling(ml, us)
}

// generatePawnCaptures appends pawn captures, en passant, and all promotions.
func (p *Position) generatePawnCaptures(ml *MoveList, us Color) {
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[us.Other()]
	empty := ^p.AllOccupied

	var push1, attackL, attackR, promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	// Non-promotion captures
	for b := attackL &^ promotionRank; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	for b := attackR &^ promotionRank; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	// Promotions: capturing and pushing
	for b := attackL & promotionRank; b != 0; {
		to := b.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	for b := attackR & promotionRank; b != 0; {
		to := b.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}
	for b := push1 & promotionRank; b != 0; {
		to := b.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}

	// En passant
	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}
}

// generatePawnQuiets appends non-promotion pawn pushes.
func (p *Position) generatePawnQuiets(ml *MoveList, us Color) {
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied

	var push1, push2, promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		promotionRank = Rank1
		pushDir = -8
	}

	for b := push1 &^ promotionRank; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
}

// addPromotions adds all four promotion moves.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateCastling appends castling moves whose path is clear and whose king
// route is not attacked.
func (p *Position) generateCastling(ml *MoveList, us Color) {
	them := us.Other()

	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F1)|SquareBB(G1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
			ml.Add(NewCastling(E1, G1))
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
			ml.Add(NewCastling(E1, C1))
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F8)|SquareBB(G8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
			ml.Add(NewCastling(E8, G8))
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B8)|SquareBB(C8)|SquareBB(D8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
			ml.Add(NewCastling(E8, C8))
		}
	}
}

// epCapturedSquare returns the square of the pawn removed by an en passant
// capture landing on to.
func epCapturedSquare(us Color, to Square) Square {
	if us == White {
		return to - 8
	}
	return to + 8
}

// GenerateEvasions appends pseudo-legal check evasions to ml: king steps off
// the checking rays, and for a lone checker, blocks and captures of it.
func (p *Position) GenerateEvasions(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	// King steps. Squares on a sliding checker's ray through the king are
	// excluded; the checker's own square stays capturable.
	var sliderAttacks Bitboard
	sliders := checkers &^ (p.Pieces[them][Knight] | p.Pieces[them][Pawn])
	for s := sliders; s != 0; {
		sliderAttacks |= Line(ksq, s.PopLSB()) &^ checkers
	}

	b := KingAttacks(ksq) & ^p.Occupied[us] & ^sliderAttacks
	for b != 0 {
		ml.Add(NewMove(ksq, b.PopLSB()))
	}

	if checkers.PopCount() > 1 {
		return // double check: only the king can move
	}

	checkSq := checkers.LSB()
	target := Between(checkSq, ksq) | SquareBB(checkSq)

	// Blocks and checker captures by non-king pieces. Pawn moves are
	// generated in full and filtered against the target.
	var pawnMoves MoveList
	p.generatePawnCaptures(&pawnMoves, us)
	p.generatePawnQuiets(&pawnMoves, us)
	for i := 0; i < pawnMoves.Len(); i++ {
		m := pawnMoves.Get(i)
		if m.IsEnPassant() {
			if epCapturedSquare(us, m.To()) == checkSq {
				ml.Add(m)
			}
			continue
		}
		if target.IsSet(m.To()) {
			ml.Add(m)
		}
	}

	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := PieceAttacks(pt, from, p.AllOccupied) & target
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}
}

// GenerateQuietChecks appends non-capture moves that give direct check.
func (p *Position) GenerateQuietChecks(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemyKing := p.KingSquare[them]
	occupied := p.AllOccupied
	empty := ^occupied

	for pt := Knight; pt <= Queen; pt++ {
		checkSqs := PieceAttacks(pt, enemyKing, occupied) & empty
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := PieceAttacks(pt, from, occupied) & checkSqs
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	// Pawn pushes landing on a checking square.
	pawns := p.Pieces[us][Pawn]
	pawnCheckSqs := pawnAttacks[them][enemyKing]

	var push1, push2 Bitboard
	var pushDir int
	if us == White {
		push1 = pawns.North() & empty &^ Rank8
		push2 = (push1 & Rank3).North() & empty
		pushDir = 8
	} else {
		push1 = pawns.South() & empty &^ Rank1
		push2 = (push1 & Rank6).South() & empty
		pushDir = -8
	}
	for b := push1 & pawnCheckSqs; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for b := push2 & pawnCheckSqs; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
}

// GenerateLegal returns all legal moves for the position.
func (p *Position) GenerateLegal() *MoveList {
	var pseudo MoveList
	p.GeneratePseudoLegal(&pseudo)

	result := NewMoveList()
	pinned := p.ComputePinned()
	for i := 0; i < pseudo.Len(); i++ {
		m := pseudo.Get(i)
		if p.IsLegal(m, pinned) {
			result.Add(m)
		}
	}
	return result
}

// IsLegal reports whether a pseudo-legal move leaves the own king safe.
// The pinned bitboard must come from ComputePinned on the same position.
// Non-pinned, non-king, non-en-passant moves need no further work when not
// in check.
func (p *Position) IsLegal(m Move, pinned Bitboard) bool {
	from := m.From()
	to := m.To()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	// King moves: the destination must not be attacked once the king has
	// left its square.
	if from == ksq {
		if m.IsCastling() {
			// Path attacks were validated during generation.
			return checkers == 0
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if checkers != 0 {
		if checkers.PopCount() > 1 {
			return false // double check: only king moves help
		}

		checker := checkers.LSB()
		validTargets := SquareBB(checker) | Between(checker, ksq)

		if m.IsEnPassant() {
			// The captured pawn may itself be the checker; the two-pawn
			// removal needs the make/unmake path.
			if epCapturedSquare(us, to) == checker {
				return p.isLegalEnPassant(m)
			}
			return false
		}

		if !validTargets.IsSet(to) {
			return false
		}
		if pinned.IsSet(from) && !Aligned(from, to, ksq) {
			return false
		}
		return true
	}

	if m.IsEnPassant() {
		return p.isLegalEnPassant(m)
	}

	if !pinned.IsSet(from) {
		return true
	}

	// Pinned pieces may only move along the pin ray.
	return Aligned(from, to, ksq)
}

// isLegalEnPassant validates en passant by make/unmake: removing two pawns
// can expose a horizontal attack the pin logic does not see.
func (p *Position) isLegalEnPassant(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	if piece := p.PieceAt(m.From()); piece == NoPiece || piece.Color() != us {
		return false
	}

	// MakeMove applies the move even when it exposes the king, so it is
	// always unmade before answering.
	undo := p.MakeMove(m)
	attacked := p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(m, undo)

	return !attacked
}

// HasLegalMoves returns true if the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var pseudo MoveList
	p.GeneratePseudoLegal(&pseudo)
	pinned := p.ComputePinned()
	for i := 0; i < pseudo.Len(); i++ {
		if p.IsLegal(pseudo.Get(i), pinned) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// MakeMove applies a move to the position and returns undo information.
// If the move leaves the mover's king attacked the move is still applied but
// undo.Valid is false.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		Checkers:       p.Checkers,
		KingSquare:     p.KingSquare,
		Pieces:         p.Pieces,
		Occupied:       p.Occupied,
		AllOccupied:    p.AllOccupied,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)

	if piece == NoPiece || piece.Color() != us {
		return undo
	}

	undo.Valid = true
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	if m.IsEnPassant() {
		capturedSq := epCapturedSquare(us, to)
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
	} else if captured := p.PieceAt(to); captured != NoPiece {
		undo.CapturedPiece = captured
		p.removePiece(to)
		p.Hash ^= zobristPiece[them][captured.Type()][to]
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promoPt][to]
	}

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]
	}

	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}

	// Rook moves or captures affect castling rights.
	if from == A1 || to == A1 {
		p.CastlingRights &^= WhiteQueenSideCastle
	}
	if from == H1 || to == H1 {
		p.CastlingRights &^= WhiteKingSideCastle
	}
	if from == A8 || to == A8 {
		p.CastlingRights &^= BlackQueenSideCastle
	}
	if from == H8 || to == H8 {
		p.CastlingRights &^= BlackKingSideCastle
	}
	p.Hash ^= zobristCastling[p.CastlingRights]

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		epSquare := Square((int(from) + int(to)) / 2)
		p.EnPassant = epSquare
		p.Hash ^= zobristEnPassant[epSquare.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckers()

	// A mover that left its own king attacked played an illegal move.
	if p.IsSquareAttacked(p.KingSquare[us], them) {
		undo.Valid = false
	}

	return undo
}

// UnmakeMove undoes a move using the stored undo information.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	us := p.SideToMove.Other()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.KingSquare = undo.KingSquare
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}
}
