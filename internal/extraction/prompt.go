package extraction

// Prompt is the instruction sent with every receipt image.
const Prompt = `Przeanalizuj obraz. Najpierw oceń, czy jest to paragon sklepowy.

1. Jeśli obraz NIE JEST paragonem, zwróć WYŁĄCZNIE obiekt JSON:
   {"error": "Przesłany obraz nie wygląda na paragon."}

2. Jeśli obraz JEST paragonem, zwróć WYŁĄCZNIE tablicę JSON obiektów, po jednym na pozycję zakupową.
   Każdy obiekt ma dokładnie dwa klucze:
   - "item" (string): pełna nazwa produktu; jeśli na paragonie jest ilość lub waga, dołącz ją do nazwy (np. "Jabłka 1,25 kg", "Woda 2 x").
   - "price" (number): końcowa cena pozycji jako liczba z kropką dziesiętną.

Zasady ustalania ceny:
- Jeśli podano cenę jednostkową i ilość, zwróć wartość całej pozycji (ilość × cena jednostkowa), a nie cenę jednostkową.
- Rabat wydrukowany w tej samej linii co produkt odejmij od ceny tego produktu.
- Rabat w osobnej linii bez nazwy produktu odejmij od pozycji bezpośrednio nad nim.
- Rabat, którego nie da się przypisać do żadnego produktu, zwróć jako osobną pozycję z ujemną ceną.

Pomiń sumy częściowe, sumę całkowitą, podatki (PTU/VAT), dane sklepu, NIP, numery kas i transakcji.
Nie dodawaj żadnego tekstu poza JSON ani znaczników Markdown.
Przykład poprawnej odpowiedzi: [{"item": "Mleko 2%", "price": 3.49}, {"item": "Chleb", "price": 4.99}]`
